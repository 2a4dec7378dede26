package domain

import "time"

type Review struct {
	ID        int64     `json:"id"`
	SpaceID   int64     `json:"space_id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Date      string    `json:"date"` // display string, not parsed
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"-"`
}

// RatingTotals aggregates every positive rating on a space.
type RatingTotals struct {
	Count int `json:"count"`
	Sum   int `json:"sum"`
}

// Reflection is an unrated narrative entry on a space.
type Reflection struct {
	ID        int64     `json:"id"`
	SpaceID   int64     `json:"space_id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"-"`
}
