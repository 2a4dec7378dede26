package app

import (
	"math"
	"strconv"
	"strings"
	"time"

	"thyrd_spaces/internal/domain"
	"thyrd_spaces/internal/listing"
)

/********** alias registries (single source of truth) **********/

var spaceAliases = map[string][]string{
	"name":        {"name", "title", "space_name"},
	"description": {"description", "desc", "details"},
	"image":       {"photo_url", "image", "image_url", "photo", "imageRef"},
	"location":    {"location_data", "location", "map_url", "locationRef"},
	"created_at":  {"created_at", "inserted_at", "createdAt"},
}

// The row store exposes snake_case columns only; custom API drafts also
// used camelCase keys, which stay in spaceAliases.
var rowStoreOverrides = map[string][]string{
	"image":    {"photo_url", "image_url"},
	"location": {"location_data", "map_url"},
}

var reviewAliases = map[string][]string{
	"title":  {"title", "review_title", "headline"},
	"text":   {"text", "description", "body", "comment"},
	"author": {"author", "username", "user.username", "user.email"},
	"date":   {"date", "created_at"},
	"rating": {"rating", "stars", "score"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmpty: first non-empty trimmed string among paths, "" otherwise.
func firstNonEmpty(m map[string]any, paths []string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) (int64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			return int64(v), true
		case int:
			return int64(v), true
		case int64:
			return v, true
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, true
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return int64(f), true
			}
		}
	}
	return 0, false
}

// splitTags accepts a list or a comma-delimited string. Segments are
// trimmed and lowercased; empty and repeated ones are dropped, first
// occurrence wins.
func splitTags(v any) []string {
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			if s, ok := it.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = t
	case string:
		raw = strings.Split(t, ",")
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		out = listing.AddTag(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func aliasesFor(shape domain.PayloadShape, key string) []string {
	if shape == domain.ShapeRowStore {
		if a, ok := rowStoreOverrides[key]; ok {
			return a
		}
	}
	return spaceAliases[key]
}

/********** space mapper **********/

// NormalizeSpace maps either backend shape into a Space. It never fails:
// missing fields become "" or empty slices.
func NormalizeSpace(p domain.Payload) domain.Space {
	f := p.Fields
	if f == nil {
		f = map[string]any{}
	}
	id, _ := firstInt64Flexible(f, "id", "space_id")

	s := domain.Space{
		ID:          id,
		Name:        firstNonEmpty(f, aliasesFor(p.Shape, "name")),
		Description: firstNonEmpty(f, aliasesFor(p.Shape, "description")),
		Tags:        splitTags(lookupAny(f, "tags")),
		ImageRef:    firstNonEmpty(f, aliasesFor(p.Shape, "image")),
		LocationRef: firstNonEmpty(f, aliasesFor(p.Shape, "location")),
		Reviews:     []domain.Review{},
		CreatedAt:   parseTime(firstNonEmpty(f, aliasesFor(p.Shape, "created_at"))),
	}
	if raw, ok := lookupAny(f, "reviews").([]any); ok {
		for _, it := range raw {
			if m, ok := it.(map[string]any); ok {
				s.Reviews = append(s.Reviews, mapReview(id, m))
			}
		}
	}
	return s
}

/********** reviews mapper **********/

func mapReview(spaceID int64, r map[string]any) domain.Review {
	rv := domain.Review{
		SpaceID: spaceID,
		Title:   firstNonEmpty(r, reviewAliases["title"]),
		Text:    firstNonEmpty(r, reviewAliases["text"]),
		Author:  firstNonEmpty(r, reviewAliases["author"]),
		Date:    firstNonEmpty(r, reviewAliases["date"]),
	}
	rv.ID, _ = firstInt64Flexible(r, "id", "review_id")
	if sid, ok := firstInt64Flexible(r, "space_id", "spaceId"); ok {
		rv.SpaceID = sid
	}
	// non-numeric ratings stay 0 so aggregation skips them
	if n, ok := firstInt64Flexible(r, reviewAliases["rating"]...); ok {
		rv.Rating = int(n)
	}
	return rv
}

/********** user mapper **********/

func NormalizeUser(f map[string]any) domain.User {
	id, _ := firstInt64Flexible(f, "id", "user_id")
	return domain.User{
		ID:       id,
		Email:    firstNonEmpty(f, []string{"email"}),
		Username: firstNonEmpty(f, []string{"username", "name"}),
	}
}
