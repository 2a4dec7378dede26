package domain

import "time"

// Space is a community-listed third place.
type Space struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`     // lowercase, insertion order kept for display
	ImageRef    string    `json:"image"`    // URL or data: payload, opaque
	LocationRef string    `json:"location"` // external map link, opaque
	Reviews     []Review  `json:"reviews"`  // newest first
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// NewSpace is a submission before the directory assigns an id.
type NewSpace struct {
	Name        string
	Description string
	Tags        []string
	ImageRef    string
	LocationRef string
}

type SearchQuery struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
}

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// PayloadShape tags which backend produced a raw record.
type PayloadShape int

const (
	ShapeCustomAPI PayloadShape = iota
	ShapeRowStore
)

func (s PayloadShape) String() string {
	switch s {
	case ShapeRowStore:
		return "rowstore"
	default:
		return "custom"
	}
}

// Payload is a raw space record as decoded from a directory backend.
type Payload struct {
	Shape  PayloadShape
	Fields map[string]any
}
