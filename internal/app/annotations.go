package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"thyrd_spaces/internal/domain"
)

// Session keys. Logout clears the user and favorites; authored
// reviews and reflections are kept.
const (
	keyUser        = "user"
	keyFavorites   = "favorites"
	keyReviews     = "reviews"
	keyReflections = "reflections"
)

// AnnotationService reads and writes the signed-in user's own data.
// Reads never fail: absent or undecodable entries come back empty.
type AnnotationService struct {
	store domain.AnnotationStore
}

func NewAnnotationService(s domain.AnnotationStore) *AnnotationService {
	return &AnnotationService{store: s}
}

func (a *AnnotationService) load(ctx context.Context, session, key string, dst any) bool {
	if session == "" {
		return false
	}
	ok, err := a.store.Get(ctx, session, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("annotation read failed; treating as empty")
		return false
	}
	return ok
}

func (a *AnnotationService) User(ctx context.Context, session string) (domain.User, bool) {
	var u domain.User
	if !a.load(ctx, session, keyUser, &u) {
		return domain.User{}, false
	}
	if u.Username == "" && u.Email == "" {
		return domain.User{}, false
	}
	return u, true
}

func (a *AnnotationService) SetUser(ctx context.Context, session string, u domain.User) error {
	return a.store.Set(ctx, session, keyUser, u)
}

func (a *AnnotationService) Favorites(ctx context.Context, session string) []int64 {
	var ids []int64
	if !a.load(ctx, session, keyFavorites, &ids) || ids == nil {
		return []int64{}
	}
	return ids
}

func (a *AnnotationService) SetFavorites(ctx context.Context, session string, ids []int64) error {
	return a.store.Set(ctx, session, keyFavorites, ids)
}

func (a *AnnotationService) Reviews(ctx context.Context, session string) []domain.Review {
	var rs []domain.Review
	if !a.load(ctx, session, keyReviews, &rs) || rs == nil {
		return []domain.Review{}
	}
	return rs
}

// PrependReview mirrors a new review into the session, newest first.
func (a *AnnotationService) PrependReview(ctx context.Context, session string, r domain.Review) error {
	return a.store.Set(ctx, session, keyReviews, append([]domain.Review{r}, a.Reviews(ctx, session)...))
}

func (a *AnnotationService) Reflections(ctx context.Context, session string) []domain.Reflection {
	var rs []domain.Reflection
	if !a.load(ctx, session, keyReflections, &rs) || rs == nil {
		return []domain.Reflection{}
	}
	return rs
}

func (a *AnnotationService) PrependReflection(ctx context.Context, session string, r domain.Reflection) error {
	return a.store.Set(ctx, session, keyReflections, append([]domain.Reflection{r}, a.Reflections(ctx, session)...))
}

// Clear signs the session out.
func (a *AnnotationService) Clear(ctx context.Context, session string) error {
	if session == "" {
		return nil
	}
	return a.store.Remove(ctx, session, keyUser, keyFavorites)
}
