package listing

import (
	"fmt"

	"thyrd_spaces/internal/domain"
)

const (
	MinRating = 1
	MaxRating = 5
	Stars     = 5
)

type RatingSummary struct {
	Average float64 `json:"average"` // clamped to [0,5]; meaningless unless Rated
	Count   int     `json:"count"`
	Rated   bool    `json:"rated"`
}

// ValidRating reports whether r may be accepted on a new review.
func ValidRating(r int) bool { return r >= MinRating && r <= MaxRating }

// AverageRating is the mean of the positive ratings, clamped to [0,5].
// ok is false when nothing has been rated yet.
func AverageRating(reviews []domain.Review) (avg float64, ok bool) {
	s := Summarize(reviews)
	return s.Average, s.Rated
}

func Summarize(reviews []domain.Review) RatingSummary {
	var t domain.RatingTotals
	for _, r := range reviews {
		if r.Rating <= 0 {
			continue
		}
		t.Sum += r.Rating
		t.Count++
	}
	return SummarizeTotals(t)
}

// SummarizeTotals builds the summary from pre-aggregated positive ratings,
// as returned by a repository that counts server side.
func SummarizeTotals(t domain.RatingTotals) RatingSummary {
	if t.Count <= 0 {
		return RatingSummary{}
	}
	return RatingSummary{
		Average: clamp(float64(t.Sum)/float64(t.Count), 0, MaxRating),
		Count:   t.Count,
		Rated:   true,
	}
}

// StarFills gives the fill fraction of each star: clamp(avg-(k-1), 0, 1).
func StarFills(avg float64) [Stars]float64 {
	var out [Stars]float64
	for k := 1; k <= Stars; k++ {
		out[k-1] = clamp(avg-float64(k-1), 0, 1)
	}
	return out
}

// Label renders the summary the way the detail page shows it, e.g. "4.0 (2 ratings)".
func (s RatingSummary) Label() string {
	if !s.Rated {
		return "No ratings yet"
	}
	plural := "s"
	if s.Count == 1 {
		plural = ""
	}
	return fmt.Sprintf("%.1f (%d rating%s)", s.Average, s.Count, plural)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
