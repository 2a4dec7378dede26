package domain

import "context"

type SpaceRepository interface {
	// Write paths
	CreateSpace(ctx context.Context, s NewSpace) (int64, error)
	UpsertSpace(ctx context.Context, s Space) error
	AddReview(ctx context.Context, r Review) (Review, error)
	AddReflection(ctx context.Context, r Reflection) (Reflection, error)
	CreateUser(ctx context.Context, email, username string) (User, error)
	LogMiss(ctx context.Context, id int64, status int, reason string) error

	// Read paths
	GetSpace(ctx context.Context, id int64) (Space, error)
	ListSpaces(ctx context.Context) ([]Space, error)
	ListReviews(ctx context.Context, spaceID int64, pg PageQuery) (ReviewsPage, error)
	ReviewTotals(ctx context.Context, spaceID int64) (RatingTotals, error)
	ListReflections(ctx context.Context, spaceID int64, pg PageQuery) ([]Reflection, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
}

// AccountDirectory registers and looks up users by email.
type AccountDirectory interface {
	Register(ctx context.Context, email, username string) (User, error)
	Login(ctx context.Context, email string) (User, error)
}

// DirectoryClient talks to an upstream directory backend. Records come back
// tagged with the backend shape; callers normalize them.
type DirectoryClient interface {
	AccountDirectory
	ListSpaces(ctx context.Context) ([]Payload, error)
	GetSpace(ctx context.Context, id int64) (Payload, error)
	CreateSpace(ctx context.Context, s NewSpace) (int64, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// AnnotationStore is durable per-session key/value storage for the
// signed-in user's own data.
type AnnotationStore interface {
	Get(ctx context.Context, session, key string, dst any) (bool, error)
	Set(ctx context.Context, session, key string, v any) error
	Remove(ctx context.Context, session string, keys ...string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

type PageQuery struct {
	Limit int
	Sort  string
}

type ReviewsPage struct {
	Items []Review `json:"items"`
}
