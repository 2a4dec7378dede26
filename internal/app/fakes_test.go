package app_test

import (
	"context"
	"encoding/json"
	"sync"

	"thyrd_spaces/internal/domain"
)

// ---- fakes ----

type miss struct {
	id     int64
	status int
}

type fakeRepo struct {
	mu          sync.Mutex
	spaces      map[int64]domain.Space
	order       []int64
	reviews     map[int64][]domain.Review
	reflections map[int64][]domain.Reflection
	users       map[string]domain.User
	misses      []miss
	listCalls   int
	totalsCalls int
	nextID      int64
}

func newFakeRepo(spaces ...domain.Space) *fakeRepo {
	r := &fakeRepo{
		spaces:      map[int64]domain.Space{},
		reviews:     map[int64][]domain.Review{},
		reflections: map[int64][]domain.Reflection{},
		users:       map[string]domain.User{},
		nextID:      100,
	}
	for _, s := range spaces {
		r.spaces[s.ID] = s
		r.order = append(r.order, s.ID)
	}
	return r
}

func (f *fakeRepo) CreateSpace(ctx context.Context, s domain.NewSpace) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.spaces[f.nextID] = domain.Space{ID: f.nextID, Name: s.Name, Description: s.Description, Tags: s.Tags, ImageRef: s.ImageRef, LocationRef: s.LocationRef, Reviews: []domain.Review{}}
	f.order = append([]int64{f.nextID}, f.order...)
	return f.nextID, nil
}

func (f *fakeRepo) UpsertSpace(ctx context.Context, s domain.Space) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.spaces[s.ID]; !ok {
		f.order = append(f.order, s.ID)
	}
	f.spaces[s.ID] = s
	return nil
}

func (f *fakeRepo) AddReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.reviews[r.SpaceID] = append([]domain.Review{r}, f.reviews[r.SpaceID]...)
	return r, nil
}

func (f *fakeRepo) AddReflection(ctx context.Context, r domain.Reflection) (domain.Reflection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.reflections[r.SpaceID] = append([]domain.Reflection{r}, f.reflections[r.SpaceID]...)
	return r, nil
}

func (f *fakeRepo) CreateUser(ctx context.Context, email, username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return domain.User{}, domain.ErrDuplicate
	}
	f.nextID++
	u := domain.User{ID: f.nextID, Email: email, Username: username}
	f.users[email] = u
	return u, nil
}

func (f *fakeRepo) LogMiss(ctx context.Context, id int64, status int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses = append(f.misses, miss{id, status})
	return nil
}

func (f *fakeRepo) GetSpace(ctx context.Context, id int64) (domain.Space, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.spaces[id]
	if !ok {
		return domain.Space{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeRepo) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]domain.Space, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.spaces[id])
	}
	return out, nil
}

func (f *fakeRepo) ListReviews(ctx context.Context, id int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.reviews[id]
	if pg.Limit > 0 && len(items) > pg.Limit {
		items = items[:pg.Limit]
	}
	return domain.ReviewsPage{Items: items}, nil
}

func (f *fakeRepo) ReviewTotals(ctx context.Context, id int64) (domain.RatingTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalsCalls++
	var t domain.RatingTotals
	for _, r := range f.reviews[id] {
		if r.Rating > 0 {
			t.Count++
			t.Sum += r.Rating
		}
	}
	return t, nil
}

func (f *fakeRepo) ListReflections(ctx context.Context, id int64, pg domain.PageQuery) ([]domain.Reflection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Reflection{}, f.reflections[id]...), nil
}

func (f *fakeRepo) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

// fakeCache round-trips through JSON like the Redis adapter does.
type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

type fakeNotes struct {
	data map[string][]byte
}

func newFakeNotes() *fakeNotes { return &fakeNotes{data: map[string][]byte{}} }

func (n *fakeNotes) Get(ctx context.Context, session, key string, dst any) (bool, error) {
	b, ok := n.data[session+"/"+key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (n *fakeNotes) Set(ctx context.Context, session, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	n.data[session+"/"+key] = b
	return nil
}

func (n *fakeNotes) Remove(ctx context.Context, session string, keys ...string) error {
	for _, k := range keys {
		delete(n.data, session+"/"+k)
	}
	return nil
}

type event struct {
	subject string
	body    any
}

type fakeEvents struct{ got []event }

func (e *fakeEvents) Publish(ctx context.Context, subject string, v any) error {
	e.got = append(e.got, event{subject, v})
	return nil
}

type fakeDirectory struct {
	list    []domain.Payload
	byID    map[int64]domain.Payload
	errByID map[int64]error
	created []domain.NewSpace
}

func (d *fakeDirectory) Register(ctx context.Context, email, username string) (domain.User, error) {
	return domain.User{Email: email, Username: username}, nil
}

func (d *fakeDirectory) Login(ctx context.Context, email string) (domain.User, error) {
	return domain.User{Email: email}, nil
}

func (d *fakeDirectory) ListSpaces(ctx context.Context) ([]domain.Payload, error) {
	return d.list, nil
}

func (d *fakeDirectory) GetSpace(ctx context.Context, id int64) (domain.Payload, error) {
	if err := d.errByID[id]; err != nil {
		return domain.Payload{}, err
	}
	p, ok := d.byID[id]
	if !ok {
		return domain.Payload{}, domain.ErrNotFound
	}
	return p, nil
}

func (d *fakeDirectory) CreateSpace(ctx context.Context, s domain.NewSpace) (int64, error) {
	d.created = append(d.created, s)
	return int64(500 + len(d.created)), nil
}

func sampleSpaces() []domain.Space {
	return []domain.Space{
		{ID: 1, Name: "Riverside Park", Description: "Benches by the water", Tags: []string{"park", "views"}, Reviews: []domain.Review{}},
		{ID: 2, Name: "Old Library", Description: "Quiet reading rooms", Tags: []string{"library"}, Reviews: []domain.Review{}},
		{ID: 3, Name: "Hilltop Garden", Description: "Park-like terraces", Tags: []string{"garden", "views"}, Reviews: []domain.Review{}},
		{ID: 4, Name: "Chapel Altar", Description: "Open at dawn", Tags: []string{"altar"}, Reviews: []domain.Review{}},
		{ID: 5, Name: "Eastside Center", Description: "Board games nightly", Tags: []string{"community center"}, Reviews: []domain.Review{}},
		{ID: 6, Name: "Pocket Park", Description: "Tiny and shaded", Tags: []string{"park"}, Reviews: []domain.Review{}},
	}
}

func ids(ss []domain.Space) []int64 {
	out := make([]int64, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.ID)
	}
	return out
}
