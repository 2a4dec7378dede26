package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"thyrd_spaces/internal/domain"
	"thyrd_spaces/internal/listing"
)

// Event subjects.
const (
	SubjectSpaceCreated      = "thyrd.space.created"
	SubjectReviewCreated     = "thyrd.review.created"
	SubjectReflectionCreated = "thyrd.reflection.created"
)

// dateLayout matches the short date the detail page shows under entries.
const dateLayout = "1/2/2006"

// SplitTags accepts a tag list or a comma-delimited string.
func SplitTags(v any) []string { return splitTags(v) }

type SpaceInput struct {
	Name        string
	Description string
	Tags        []string
	Photo       string
	Location    string
}

type EntryInput struct {
	Title  string
	Text   string
	Rating int // reviews only
}

type CommandService struct {
	repo    domain.SpaceRepository
	cache   domain.Cache
	catalog *Catalog
	notes   *AnnotationService
	events  domain.EventPublisher
	now     func() time.Time
}

func NewCommandService(r domain.SpaceRepository, c domain.Cache, catalog *Catalog, notes *AnnotationService, ev domain.EventPublisher) *CommandService {
	return &CommandService{repo: r, cache: c, catalog: catalog, notes: notes, events: ev, now: time.Now}
}

// BuildNewSpace trims and validates a submission. Tags become a lowercase
// set in first-seen order.
func BuildNewSpace(in SpaceInput) (domain.NewSpace, error) {
	ns := domain.NewSpace{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Tags:        []string{},
		ImageRef:    strings.TrimSpace(in.Photo),
		LocationRef: strings.TrimSpace(in.Location),
	}
	if ns.Name == "" {
		return domain.NewSpace{}, domain.Invalid("name", "name is required")
	}
	for _, t := range in.Tags {
		ns.Tags = listing.AddTag(ns.Tags, strings.ToLower(strings.TrimSpace(t)))
	}
	return ns, nil
}

func (s *CommandService) CreateSpace(ctx context.Context, in SpaceInput) (int64, error) {
	ns, err := BuildNewSpace(in)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.CreateSpace(ctx, ns)
	if err != nil {
		return 0, err
	}
	s.invalidateListing(ctx)
	s.publish(ctx, SubjectSpaceCreated, map[string]any{"id": id, "name": ns.Name, "tags": ns.Tags})
	return id, nil
}

// AddReview stores a rated entry by the session's user and mirrors it into
// the session's annotations.
func (s *CommandService) AddReview(ctx context.Context, session string, spaceID int64, in EntryInput) (domain.Review, error) {
	u, err := s.author(ctx, session)
	if err != nil {
		return domain.Review{}, err
	}
	title, text, err := validateEntry(in)
	if err != nil {
		return domain.Review{}, err
	}
	if !listing.ValidRating(in.Rating) {
		return domain.Review{}, domain.Invalid("rating", fmt.Sprintf("rating must be between %d and %d", listing.MinRating, listing.MaxRating))
	}
	if _, err := s.repo.GetSpace(ctx, spaceID); err != nil {
		return domain.Review{}, err
	}

	now := s.now()
	rv, err := s.repo.AddReview(ctx, domain.Review{
		SpaceID:   spaceID,
		Title:     title,
		Text:      text,
		Author:    displayName(u),
		Date:      now.Format(dateLayout),
		Rating:    in.Rating,
		CreatedAt: now,
	})
	if err != nil {
		return domain.Review{}, err
	}
	if err := s.notes.PrependReview(ctx, session, rv); err != nil {
		log.Warn().Err(err).Int64("space_id", spaceID).Msg("mirror review to session failed")
	}
	s.invalidateSpace(ctx, spaceID)
	s.publish(ctx, SubjectReviewCreated, rv)
	return rv, nil
}

func (s *CommandService) AddReflection(ctx context.Context, session string, spaceID int64, in EntryInput) (domain.Reflection, error) {
	u, err := s.author(ctx, session)
	if err != nil {
		return domain.Reflection{}, err
	}
	title, text, err := validateEntry(in)
	if err != nil {
		return domain.Reflection{}, err
	}
	if _, err := s.repo.GetSpace(ctx, spaceID); err != nil {
		return domain.Reflection{}, err
	}

	now := s.now()
	rf, err := s.repo.AddReflection(ctx, domain.Reflection{
		SpaceID:   spaceID,
		Title:     title,
		Text:      text,
		Author:    displayName(u),
		Date:      now.Format(dateLayout),
		CreatedAt: now,
	})
	if err != nil {
		return domain.Reflection{}, err
	}
	if err := s.notes.PrependReflection(ctx, session, rf); err != nil {
		log.Warn().Err(err).Int64("space_id", spaceID).Msg("mirror reflection to session failed")
	}
	s.publish(ctx, SubjectReflectionCreated, rf)
	return rf, nil
}

func (s *CommandService) author(ctx context.Context, session string) (domain.User, error) {
	u, ok := s.notes.User(ctx, session)
	if !ok {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return u, nil
}

func validateEntry(in EntryInput) (title, text string, err error) {
	title, text = strings.TrimSpace(in.Title), strings.TrimSpace(in.Text)
	if title == "" {
		return "", "", domain.Invalid("title", "title is required")
	}
	if text == "" {
		return "", "", domain.Invalid("text", "text is required")
	}
	return title, text, nil
}

func displayName(u domain.User) string {
	switch {
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	}
	return "You"
}

func (s *CommandService) publish(ctx context.Context, subject string, v any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, subject, v); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("publish event failed")
	}
}

func (s *CommandService) invalidateListing(ctx context.Context) {
	_ = s.cache.Del(ctx, keyAllSpaces)
	s.catalog.Invalidate()
}

// invalidate the space detail, its review window and its rating totals
func (s *CommandService) invalidateSpace(ctx context.Context, id int64) {
	_ = s.cache.Del(ctx, spaceKey(id))
	invalidateReviews(ctx, s.cache, id)
}

func invalidateReviews(ctx context.Context, c domain.Cache, id int64) {
	_ = c.Del(ctx, reviewsKey(id))
	_ = c.Del(ctx, ratingKey(id))
}

/********** sync from an upstream directory **********/

// SyncService imports spaces from an upstream directory into the repository.
type SyncService struct {
	dir   domain.DirectoryClient
	repo  domain.SpaceRepository
	cache domain.Cache
}

func NewSyncService(d domain.DirectoryClient, r domain.SpaceRepository, cache domain.Cache) *SyncService {
	return &SyncService{dir: d, repo: r, cache: cache}
}

// FetchAll lists and normalizes every upstream space.
func (s *SyncService) FetchAll(ctx context.Context) ([]domain.Space, error) {
	raw, err := s.dir.ListSpaces(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Space, 0, len(raw))
	for _, p := range raw {
		out = append(out, NormalizeSpace(p))
	}
	return out, nil
}

// Import upserts one normalized space. Records without an id or a name
// are logged as misses and skipped.
func (s *SyncService) Import(ctx context.Context, sp domain.Space) error {
	if sp.ID <= 0 || sp.Name == "" {
		_ = s.repo.LogMiss(ctx, sp.ID, 422, "malformed")
		return nil
	}
	if err := s.repo.UpsertSpace(ctx, sp); err != nil {
		return fmt.Errorf("upsert space %d: %w", sp.ID, err)
	}
	s.invalidate(ctx, sp.ID)
	return nil
}

// SyncByID fetches one space upstream. 404 and 401/403 are recorded as
// misses and evict caches; anything else bubbles up.
func (s *SyncService) SyncByID(ctx context.Context, id int64) error {
	p, err := s.dir.GetSpace(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			_ = s.repo.LogMiss(ctx, id, 404, "not found")
			s.invalidate(ctx, id)
			return nil
		case errors.Is(err, domain.ErrAccessDenied):
			_ = s.repo.LogMiss(ctx, id, 403, "inactive")
			s.invalidate(ctx, id)
			return nil
		}
		return err
	}
	sp := NormalizeSpace(p)
	if sp.ID == 0 {
		sp.ID = id
	}
	return s.Import(ctx, sp)
}

// Submit creates a space upstream and returns the directory's id. The
// local copy arrives with the next sync.
func (s *SyncService) Submit(ctx context.Context, in SpaceInput) (int64, error) {
	ns, err := BuildNewSpace(in)
	if err != nil {
		return 0, err
	}
	id, err := s.dir.CreateSpace(ctx, ns)
	if err != nil {
		return 0, fmt.Errorf("submit %q: %w", ns.Name, err)
	}
	return id, nil
}

func (s *SyncService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, spaceKey(id))
	_ = s.cache.Del(ctx, keyAllSpaces)
	invalidateReviews(ctx, s.cache, id)
}
