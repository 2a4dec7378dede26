// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"thyrd_spaces/internal/app"
	"thyrd_spaces/internal/domain"
	"thyrd_spaces/internal/listing"
	"thyrd_spaces/internal/shared"
)

const (
	defaultListLimit = 50
	maxListLimit     = app.MaxReviewLimit
	maxBodyBytes     = 8 << 20 // photos may arrive as data: URLs
)

type Handlers struct {
	Q           *app.QueryService
	C           *app.CommandService
	A           *app.AccountService
	Taxonomy    shared.Taxonomy
	PageSize    int
	MaxPageSize int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/categories", h.categories)

	s.mux.Get("/v1/spaces", h.browse)
	s.mux.Post("/v1/spaces", h.createSpace)
	s.mux.Get("/v1/spaces/{id}", h.getSpace)
	s.mux.Get("/v1/spaces/{id}/reviews", h.listReviews)
	s.mux.Post("/v1/spaces/{id}/reviews", h.addReview)
	s.mux.Get("/v1/spaces/{id}/reflections", h.listReflections)
	s.mux.Post("/v1/spaces/{id}/reflections", h.addReflection)

	s.mux.Post("/v1/users", h.register)
	s.mux.Post("/v1/sessions", h.login)
	s.mux.Delete("/v1/sessions", h.logout)
	s.mux.Get("/v1/me", h.profile)
	s.mux.Put("/v1/me/favorites/{id}", h.toggleFavorite)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses. Anything not
// recognised is treated as a backing store failure.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeProblemBody(w, problem{Type: "about:blank", Title: "Validation Failed", Status: http.StatusUnprocessableEntity, Detail: ve.Msg, Field: ve.Field})
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "sign in first")
	case errors.Is(err, domain.ErrAccessDenied):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		w.Header().Set("Retry-After", "5")
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "please retry shortly")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v as JSON with an ETag, or 304 when the client has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be a JSON object")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer in [lo, hi].
func queryInt(w http.ResponseWriter, r *http.Request, name string, def, lo, hi int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		writeProblem(w, http.StatusBadRequest, "Invalid "+name, name+" must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
		return 0, false
	}
	return n, true
}

/********** browse **********/

func (h *Handlers) categories(w http.ResponseWriter, r *http.Request) {
	writeCached(w, r, h.Taxonomy)
}

func (h *Handlers) browse(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(w, r, "page", 1, 1, 1<<30)
	if !ok {
		return
	}
	size, ok := queryInt(w, r, "page_size", h.PageSize, 1, h.MaxPageSize)
	if !ok {
		return
	}
	q := domain.SearchQuery{
		Keyword:  r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	out, err := h.Q.Browse(r.Context(), q, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type ratingView struct {
	listing.RatingSummary
	Label string `json:"label"`
}

type spaceDetail struct {
	domain.Space
	Rating   ratingView             `json:"rating"`
	Stars    [listing.Stars]float64 `json:"stars"`
	Chips    []listing.TagChip      `json:"chips"`
	Favorite bool                   `json:"favorite"`
}

func (h *Handlers) getSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sp, err := h.Q.GetSpace(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rs, err := h.Q.ListReviews(r.Context(), id, domain.PageQuery{Limit: defaultListLimit, Sort: "-created_at"})
	if err != nil {
		writeError(w, r, err)
		return
	}
	sp.Reviews = rs.Items

	// rated over every review, not just the listed ones
	sum, err := h.Q.RatingSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, spaceDetail{
		Space:    sp,
		Rating:   ratingView{RatingSummary: sum, Label: sum.Label()},
		Stars:    listing.StarFills(sum.Average),
		Chips:    listing.Chips(sp.Tags),
		Favorite: h.A.IsFavorite(r.Context(), sessionID(r.Context()), id),
	})
}

type spaceBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tags        any    `json:"tags"` // list or comma-delimited string
	Photo       string `json:"photo_url"`
	Location    string `json:"location_data"`
}

func (h *Handlers) createSpace(w http.ResponseWriter, r *http.Request) {
	var b spaceBody
	if !decodeBody(w, r, &b) {
		return
	}
	id, err := h.C.CreateSpace(r.Context(), app.SpaceInput{
		Name:        b.Name,
		Description: b.Description,
		Tags:        app.SplitTags(b.Tags),
		Photo:       b.Photo,
		Location:    b.Location,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/spaces/"+strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

/********** reviews & reflections **********/

type entryBody struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", defaultListLimit, 1, maxListLimit)
	if !ok {
		return
	}
	if _, err := h.Q.GetSpace(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	// Newest first; aligns with DB index on (space_id, created_at, id)
	out, err := h.Q.ListReviews(r.Context(), id, domain.PageQuery{Limit: limit, Sort: "-created_at"})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) addReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var b entryBody
	if !decodeBody(w, r, &b) {
		return
	}
	rv, err := h.C.AddReview(r.Context(), sessionID(r.Context()), id, app.EntryInput{Title: b.Title, Text: b.Text, Rating: b.Rating})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *Handlers) listReflections(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", defaultListLimit, 1, maxListLimit)
	if !ok {
		return
	}
	out, err := h.Q.ListReflections(r.Context(), id, domain.PageQuery{Limit: limit, Sort: "-created_at"})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, map[string]any{"items": out})
}

func (h *Handlers) addReflection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var b entryBody
	if !decodeBody(w, r, &b) {
		return
	}
	rf, err := h.C.AddReflection(r.Context(), sessionID(r.Context()), id, app.EntryInput{Title: b.Title, Text: b.Text})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rf)
}

/********** accounts **********/

type accountBody struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var b accountBody
	if !decodeBody(w, r, &b) {
		return
	}
	u, err := h.A.Register(r.Context(), b.Email, b.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var b accountBody
	if !decodeBody(w, r, &b) {
		return
	}
	session, u, err := h.A.Login(r.Context(), b.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(SessionHeader, session)
	writeJSON(w, http.StatusCreated, map[string]any{"session": session, "user": u})
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.A.Logout(r.Context(), sessionID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.A.Profile(r.Context(), sessionID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	on, favs, err := h.A.ToggleFavorite(r.Context(), sessionID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorite": on, "favorites": favs})
}
