package listing

import "slices"

// Tag chip styles, alternated by display position.
const (
	ChipEven = "tag-rose"
	ChipOdd  = "tag-sage"
)

func AddTag(selected []string, tag string) []string {
	if tag == "" || slices.Contains(selected, tag) {
		return selected
	}
	out := make([]string, len(selected), len(selected)+1)
	copy(out, selected)
	return append(out, tag)
}

func RemoveTag(selected []string, tag string) []string {
	out := make([]string, 0, len(selected))
	for _, t := range selected {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

// ToggleFavorite flips membership of id. Applying it twice restores the input.
func ToggleFavorite(favorites []int64, id int64) []int64 {
	if i := slices.Index(favorites, id); i >= 0 {
		out := make([]int64, 0, len(favorites)-1)
		out = append(out, favorites[:i]...)
		return append(out, favorites[i+1:]...)
	}
	out := make([]int64, len(favorites), len(favorites)+1)
	copy(out, favorites)
	return append(out, id)
}

func IsFavorite(favorites []int64, id int64) bool { return slices.Contains(favorites, id) }

func TagChipClass(index int) string {
	if index%2 == 0 {
		return ChipEven
	}
	return ChipOdd
}

type TagChip struct {
	Tag   string `json:"tag"`
	Class string `json:"class"`
}

// Chips pairs each tag with its style using the tag's display index.
func Chips(tags []string) []TagChip {
	out := make([]TagChip, len(tags))
	for i, t := range tags {
		out[i] = TagChip{Tag: t, Class: TagChipClass(i)}
	}
	return out
}
