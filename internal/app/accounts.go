package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"thyrd_spaces/internal/domain"
	"thyrd_spaces/internal/listing"
)

// RepoAccounts serves accounts from the local repository.
type RepoAccounts struct{ repo domain.SpaceRepository }

func NewRepoAccounts(r domain.SpaceRepository) *RepoAccounts { return &RepoAccounts{repo: r} }

func (a *RepoAccounts) Register(ctx context.Context, email, username string) (domain.User, error) {
	return a.repo.CreateUser(ctx, email, username)
}

func (a *RepoAccounts) Login(ctx context.Context, email string) (domain.User, error) {
	return a.repo.FindUserByEmail(ctx, email)
}

type Profile struct {
	User        domain.User         `json:"user"`
	Favorites   []domain.Space      `json:"favorites"`
	Reviews     []domain.Review     `json:"reviews"`
	Reflections []domain.Reflection `json:"reflections"`
}

// AccountService handles sign-up, sessions and favorites.
type AccountService struct {
	dir   domain.AccountDirectory
	notes *AnnotationService
	q     *QueryService
}

func NewAccountService(d domain.AccountDirectory, notes *AnnotationService, q *QueryService) *AccountService {
	return &AccountService{dir: d, notes: notes, q: q}
}

func (s *AccountService) Register(ctx context.Context, email, username string) (domain.User, error) {
	email, username = strings.TrimSpace(email), strings.TrimSpace(username)
	if !strings.Contains(email, "@") {
		return domain.User{}, domain.Invalid("email", "please enter a valid email address")
	}
	if username == "" {
		return domain.User{}, domain.Invalid("username", "username is required")
	}
	return s.dir.Register(ctx, email, username)
}

// Login looks the user up by email and opens a new session for them.
func (s *AccountService) Login(ctx context.Context, email string) (session string, u domain.User, err error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return "", domain.User{}, domain.Invalid("email", "please enter a valid email address")
	}
	u, err = s.dir.Login(ctx, email)
	if err != nil {
		return "", domain.User{}, err
	}
	session = uuid.NewString()
	if err := s.notes.SetUser(ctx, session, u); err != nil {
		return "", domain.User{}, err
	}
	return session, u, nil
}

func (s *AccountService) Logout(ctx context.Context, session string) error {
	return s.notes.Clear(ctx, session)
}

func (s *AccountService) Profile(ctx context.Context, session string) (Profile, error) {
	u, ok := s.notes.User(ctx, session)
	if !ok {
		return Profile{}, domain.ErrUnauthenticated
	}
	favs, err := s.q.Spaces(ctx, s.notes.Favorites(ctx, session))
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		User:        u,
		Favorites:   favs,
		Reviews:     s.notes.Reviews(ctx, session),
		Reflections: s.notes.Reflections(ctx, session),
	}, nil
}

// IsFavorite is false for anonymous sessions.
func (s *AccountService) IsFavorite(ctx context.Context, session string, spaceID int64) bool {
	return listing.IsFavorite(s.notes.Favorites(ctx, session), spaceID)
}

// ToggleFavorite flips spaceID in the session's favorites and returns the
// resulting membership and set.
func (s *AccountService) ToggleFavorite(ctx context.Context, session string, spaceID int64) (bool, []int64, error) {
	if _, ok := s.notes.User(ctx, session); !ok {
		return false, nil, domain.ErrUnauthenticated
	}
	if _, err := s.q.GetSpace(ctx, spaceID); err != nil {
		return false, nil, err
	}
	favs := listing.ToggleFavorite(s.notes.Favorites(ctx, session), spaceID)
	if err := s.notes.SetFavorites(ctx, session, favs); err != nil {
		return false, nil, err
	}
	return listing.IsFavorite(favs, spaceID), favs, nil
}
