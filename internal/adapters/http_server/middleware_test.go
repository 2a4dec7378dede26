package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestSessionAndInstrument(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(Session)
	r.Use(Instrument(zerolog.New(&buf)))
	r.Get("/v1/spaces/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sessionID(r.Context())))
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/spaces/7", nil)
	req.Header.Set(SessionHeader, "  s-1 ")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Body.String() != "s-1" {
		t.Fatalf("session in context = %q", rr.Body.String())
	}

	var line struct {
		Route   string `json:"route"`
		Status  int    `json:"status"`
		Bytes   int    `json:"bytes"`
		Session bool   `json:"session"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("access log: %v (%s)", err, buf.String())
	}
	if line.Route != "/v1/spaces/{id}" || line.Status != 200 || line.Bytes != 3 || !line.Session {
		t.Fatalf("unexpected access log %+v", line)
	}
}

func TestInstrument_Unmatched(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(Instrument(zerolog.New(&buf)))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	var line struct {
		Route  string `json:"route"`
		Status int    `json:"status"`
	}
	_ = json.Unmarshal(buf.Bytes(), &line)
	if line.Route != "unmatched" || line.Status != http.StatusNotFound {
		t.Fatalf("unexpected access log %+v", line)
	}
}
