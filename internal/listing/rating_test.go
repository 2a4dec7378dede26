package listing_test

import (
	"math"
	"testing"

	"thyrd_spaces/internal/domain"
	"thyrd_spaces/internal/listing"
)

func TestAverageRating_Empty(t *testing.T) {
	if _, ok := listing.AverageRating(nil); ok {
		t.Fatalf("expected no rating for empty reviews")
	}
	// unrated entries are not the same as a zero rating
	if _, ok := listing.AverageRating([]domain.Review{{Rating: 0}, {Rating: -2}}); ok {
		t.Fatalf("expected no rating when every entry is non-positive")
	}
}

func TestAverageRating_Mean(t *testing.T) {
	avg, ok := listing.AverageRating([]domain.Review{{Rating: 5}, {Rating: 3}})
	if !ok || avg != 4.0 {
		t.Fatalf("got %v ok=%v, want 4.0", avg, ok)
	}

	avg, ok = listing.AverageRating([]domain.Review{{Rating: 4}, {Rating: 0}, {Rating: 5}})
	if !ok || avg != 4.5 {
		t.Fatalf("malformed entry should be skipped: got %v", avg)
	}
}

func TestAverageRating_ClampDoesNotTouchStored(t *testing.T) {
	reviews := []domain.Review{{Rating: 9}, {Rating: 7}}
	avg, ok := listing.AverageRating(reviews)
	if !ok || avg != 5 {
		t.Fatalf("expected display clamp to 5, got %v", avg)
	}
	if reviews[0].Rating != 9 || reviews[1].Rating != 7 {
		t.Fatalf("stored ratings changed: %+v", reviews)
	}
}

func TestStarFills(t *testing.T) {
	avg := 3.4
	want := [5]float64{1, 1, 1, 0.4, 0}
	got := listing.StarFills(avg)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("star %d: got %v want %v (all=%v)", i+1, got[i], want[i], got)
		}
	}
	// same formula, same float ops
	if got[3] != avg-3 {
		t.Fatalf("fill must be avg-(k-1) exactly, got %v", got[3])
	}
	if got := listing.StarFills(0); got != [5]float64{} {
		t.Fatalf("zero average: %v", got)
	}
	if got := listing.StarFills(5); got != [5]float64{1, 1, 1, 1, 1} {
		t.Fatalf("full average: %v", got)
	}
}

func TestValidRating(t *testing.T) {
	for r, want := range map[int]bool{0: false, 1: true, 3: true, 5: true, 6: false, -1: false} {
		if listing.ValidRating(r) != want {
			t.Fatalf("ValidRating(%d) != %v", r, want)
		}
	}
}

func TestRatingSummary_Label(t *testing.T) {
	cases := []struct {
		reviews []domain.Review
		want    string
	}{
		{nil, "No ratings yet"},
		{[]domain.Review{{Rating: 4}}, "4.0 (1 rating)"},
		{[]domain.Review{{Rating: 5}, {Rating: 4}}, "4.5 (2 ratings)"},
	}
	for _, c := range cases {
		if got := listing.Summarize(c.reviews).Label(); got != c.want {
			t.Fatalf("got %q want %q", got, c.want)
		}
	}
}

func TestSummarizeTotals_MatchesSummarize(t *testing.T) {
	reviews := []domain.Review{{Rating: 5}, {Rating: 0}, {Rating: 3}, {Rating: -1}, {Rating: 4}}
	fromRows := listing.Summarize(reviews)
	fromTotals := listing.SummarizeTotals(domain.RatingTotals{Count: 3, Sum: 12})
	if fromRows != fromTotals {
		t.Fatalf("rows %+v != totals %+v", fromRows, fromTotals)
	}
	if s := listing.SummarizeTotals(domain.RatingTotals{}); s.Rated || s.Label() != "No ratings yet" {
		t.Fatalf("empty totals: %+v", s)
	}
	if s := listing.SummarizeTotals(domain.RatingTotals{Count: 2, Sum: 16}); s.Average != 5 {
		t.Fatalf("average should clamp to 5, got %v", s.Average)
	}
}
