package app_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"thyrd_spaces/internal/app"
	"thyrd_spaces/internal/domain"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return m
}

func TestNormalizeSpace_CustomShape(t *testing.T) {
	p := domain.Payload{Shape: domain.ShapeCustomAPI, Fields: decode(t, `{
		"id": 7,
		"name": "Volunteer Park",
		"description": "Lovely",
		"tags": "park, Views, ",
		"photo_url": "data:image/png;base64,AAAA",
		"location_data": "https://maps.example/vp",
		"created_at": "2025-11-19T10:00:00"
	}`)}
	got := app.NormalizeSpace(p)
	want := domain.Space{
		ID:          7,
		Name:        "Volunteer Park",
		Description: "Lovely",
		Tags:        []string{"park", "views"},
		ImageRef:    "data:image/png;base64,AAAA",
		LocationRef: "https://maps.example/vp",
		Reviews:     []domain.Review{},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(domain.Space{}, "CreatedAt")); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("created_at should parse")
	}
}

func TestNormalizeSpace_RowStoreShape(t *testing.T) {
	p := domain.Payload{Shape: domain.ShapeRowStore, Fields: decode(t, `{
		"id": "12",
		"name": "Capitol Hill Library",
		"tags": ["library", " Study "],
		"image_url": "https://img.example/l.jpg",
		"reviews": [
			{"id": 1, "title": "Quiet", "description": "Good desks", "rating": 5, "username": "ana"},
			{"id": 2, "title": "Meh", "rating": "n/a"}
		]
	}`)}
	got := app.NormalizeSpace(p)
	if got.ID != 12 || got.ImageRef != "https://img.example/l.jpg" {
		t.Fatalf("unexpected space: %+v", got)
	}
	if diff := cmp.Diff([]string{"library", "study"}, got.Tags); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}
	if len(got.Reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(got.Reviews))
	}
	r := got.Reviews[0]
	if r.SpaceID != 12 || r.Text != "Good desks" || r.Author != "ana" || r.Rating != 5 {
		t.Fatalf("unexpected review: %+v", r)
	}
	if got.Reviews[1].Rating != 0 {
		t.Fatalf("non-numeric rating should normalize to 0, got %d", got.Reviews[1].Rating)
	}
}

func TestNormalizeSpace_TagsCSV(t *testing.T) {
	got := app.NormalizeSpace(domain.Payload{Fields: map[string]any{"tags": "park, views, "}})
	if diff := cmp.Diff([]string{"park", "views"}, got.Tags); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNormalizeSpace_TagsAreASet(t *testing.T) {
	for _, tags := range []any{
		"park, Park , views,park",
		[]any{"park", "PARK", "views", " park"},
	} {
		got := app.NormalizeSpace(domain.Payload{Fields: map[string]any{"tags": tags}})
		if diff := cmp.Diff([]string{"park", "views"}, got.Tags); diff != "" {
			t.Fatalf("tags %v (-want +got):\n%s", tags, diff)
		}
	}
	if diff := cmp.Diff([]string{"park"}, app.SplitTags("park, park")); diff != "" {
		t.Fatalf("SplitTags (-want +got):\n%s", diff)
	}
}

func TestNormalizeSpace_IsTotal(t *testing.T) {
	for _, f := range []map[string]any{
		nil,
		{},
		{"tags": nil, "name": 42, "reviews": "oops", "photo_url": nil},
		{"tags": []any{1, "ok", nil}},
	} {
		got := app.NormalizeSpace(domain.Payload{Fields: f})
		if got.Tags == nil || got.Reviews == nil {
			t.Fatalf("fields %v: slices must be non-nil, got %+v", f, got)
		}
		if got.Name != "" || got.ImageRef != "" || got.LocationRef != "" {
			t.Fatalf("fields %v: expected empty strings, got %+v", f, got)
		}
	}
}

func TestNormalizeUser(t *testing.T) {
	u := app.NormalizeUser(decode(t, `{"id": 3, "email": "a@b.c", "username": "ana"}`))
	if u != (domain.User{ID: 3, Email: "a@b.c", Username: "ana"}) {
		t.Fatalf("unexpected user: %+v", u)
	}
}
