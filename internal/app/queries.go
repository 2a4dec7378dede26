package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"thyrd_spaces/internal/domain"
	"thyrd_spaces/internal/listing"
)

const keyAllSpaces = "spaces:all"

func spaceKey(id int64) string { return fmt.Sprintf("space:%d", id) }

type QueryService struct {
	repo     domain.SpaceRepository
	cache    domain.Cache
	cacheTTL time.Duration
	catalog  *Catalog
}

func NewQueryService(r domain.SpaceRepository, c domain.Cache, ttl time.Duration, catalog *Catalog) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl, catalog: catalog}
}

// CachedSpaces is the catalog loader: shared cache first, then the repository.
func CachedSpaces(r domain.SpaceRepository, c domain.Cache, ttl time.Duration) Loader {
	return func(ctx context.Context) ([]domain.Space, error) {
		var out []domain.Space
		if ok, _ := c.Get(ctx, keyAllSpaces, &out); ok {
			return out, nil
		}
		out, err := r.ListSpaces(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.Set(ctx, keyAllSpaces, out, int(ttl.Seconds()))
		return out, nil
	}
}

type BrowsePage struct {
	Items      []domain.Space `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// Browse filters the catalog and returns one page. A page past the end is
// an empty page, not an error.
func (s *QueryService) Browse(ctx context.Context, q domain.SearchQuery, page, pageSize int) (BrowsePage, error) {
	all, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return BrowsePage{}, err
	}
	matched := listing.Filter(all, q)
	return BrowsePage{
		Items:      listing.Paginate(matched, page, pageSize),
		Page:       page,
		PageSize:   pageSize,
		Total:      len(matched),
		TotalPages: listing.PageCount(len(matched), pageSize),
	}, nil
}

// Spaces resolves ids against the catalog, keeping the order of ids and
// skipping unknown ones.
func (s *QueryService) Spaces(ctx context.Context, ids []int64) ([]domain.Space, error) {
	all, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Space, len(all))
	for _, sp := range all {
		byID[sp.ID] = sp
	}
	out := make([]domain.Space, 0, len(ids))
	for _, id := range ids {
		if sp, ok := byID[id]; ok {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (s *QueryService) GetSpace(ctx context.Context, id int64) (domain.Space, error) {
	key := spaceKey(id)
	var sp domain.Space
	if ok, _ := s.cache.Get(ctx, key, &sp); ok {
		return sp, nil
	}
	sp, err := s.repo.GetSpace(ctx, id)
	if err != nil {
		return domain.Space{}, err
	}
	_ = s.cache.Set(ctx, key, sp, int(s.cacheTTL.Seconds()))
	return sp, nil
}

// ListReviews returns the newest pg.Limit reviews. One window of
// MaxReviewLimit per space is cached and sliced per request, so a single
// eviction covers every limit.
func (s *QueryService) ListReviews(ctx context.Context, id int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	limit := pg.Limit
	if limit <= 0 || limit > MaxReviewLimit {
		limit = MaxReviewLimit
	}

	key := reviewsKey(id)
	var window domain.ReviewsPage
	if ok, _ := s.cache.Get(ctx, key, &window); !ok {
		rs, err := s.repo.ListReviews(ctx, id, domain.PageQuery{Limit: MaxReviewLimit, Sort: reviewSort})
		if err != nil {
			return domain.ReviewsPage{}, err
		}
		// copy slice to avoid aliasing the repo's backing array
		window = deepCopyReviewsPage(rs)

		// optional size guard
		if b, _ := json.Marshal(window); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, window, int(s.cacheTTL.Seconds()))
		}
	}
	if len(window.Items) > limit {
		window.Items = window.Items[:limit:limit]
	}
	if window.Items == nil {
		window.Items = []domain.Review{}
	}
	return window, nil
}

// RatingSummary aggregates every rating on the space, not just the
// listed window.
func (s *QueryService) RatingSummary(ctx context.Context, id int64) (listing.RatingSummary, error) {
	key := ratingKey(id)
	var t domain.RatingTotals
	if ok, _ := s.cache.Get(ctx, key, &t); !ok {
		var err error
		if t, err = s.repo.ReviewTotals(ctx, id); err != nil {
			return listing.RatingSummary{}, err
		}
		_ = s.cache.Set(ctx, key, t, int(s.cacheTTL.Seconds()))
	}
	return listing.SummarizeTotals(t), nil
}

func (s *QueryService) ListReflections(ctx context.Context, id int64, pg domain.PageQuery) ([]domain.Reflection, error) {
	if _, err := s.GetSpace(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListReflections(ctx, id, pg)
}

// Review lists are always newest first; MaxReviewLimit bounds both the
// API limit and the cached window.
const (
	MaxReviewLimit = 200
	reviewSort     = "-created_at"
)

func reviewsKey(id int64) string { return fmt.Sprintf("reviews:%d", id) }

func ratingKey(id int64) string { return fmt.Sprintf("rating:%d", id) }

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{Items: []domain.Review{}}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}
