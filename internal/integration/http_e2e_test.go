//go:build integration || !unit

package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "thyrd_spaces/internal/adapters/http_server"
	redisad "thyrd_spaces/internal/adapters/redis"
	"thyrd_spaces/internal/app"
	"thyrd_spaces/internal/shared"
	mysqlrepo "thyrd_spaces/internal/storage/mysql"
)

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func post(t *testing.T, url, session string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(httpserver.SessionHeader, session)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

// ---------- the test ----------
func TestHTTP_EndToEnd_BrowseAndReview(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=thyrd",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "thyrd")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// Apply the real migrations
	applyMigrations(t, db)

	// Wire the real stack; Redis is in-process
	mr := miniredis.RunT(t)
	rc := redisad.NewClient(mr.Addr(), "", 0)
	repo := mysqlrepo.New(db)
	cache := redisad.New(rc)
	notes := app.NewAnnotationService(redisad.NewAnnotations(rc, time.Hour))
	catalog := app.NewCatalog(app.CachedSpaces(repo, cache, time.Minute), time.Minute)
	q := app.NewQueryService(repo, cache, time.Minute, catalog)
	tx, _ := shared.LoadTaxonomy("")

	srv := httpserver.New([]string{"*"})
	srv.MountHandlers(&httpserver.Handlers{
		Q:           q,
		C:           app.NewCommandService(repo, cache, catalog, notes, nil),
		A:           app.NewAccountService(app.NewRepoAccounts(repo), notes, q),
		Taxonomy:    tx,
		PageSize:    5,
		MaxPageSize: 50,
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	for _, sp := range []map[string]any{
		{"name": "Volunteer Park", "tags": "park, views"},
		{"name": "Capitol Hill Library", "tags": []string{"library"}},
	} {
		res := post(t, ts.URL+"/v1/spaces", "", sp)
		res.Body.Close()
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create status %d", res.StatusCode)
		}
	}

	res := post(t, ts.URL+"/v1/users", "", map[string]string{"email": "ana@example.com", "username": "ana"})
	res.Body.Close()
	res = post(t, ts.URL+"/v1/sessions", "", map[string]string{"email": "ana@example.com"})
	var login struct {
		Session string `json:"session"`
	}
	_ = json.NewDecoder(res.Body).Decode(&login)
	res.Body.Close()
	if login.Session == "" {
		t.Fatalf("no session issued")
	}

	// Browse by keyword
	res, err = http.Get(ts.URL + "/v1/spaces?q=park")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var page app.BrowsePage
	_ = json.NewDecoder(res.Body).Decode(&page)
	res.Body.Close()
	if page.Total != 1 || page.Items[0].Name != "Volunteer Park" {
		t.Fatalf("unexpected browse: %+v", page)
	}
	parkID := page.Items[0].ID

	res = post(t, fmt.Sprintf("%s/v1/spaces/%d/reviews", ts.URL, parkID), login.Session,
		map[string]any{"title": "Quiet", "text": "Good benches", "rating": 5})
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("review status %d", res.StatusCode)
	}

	res, err = http.Get(fmt.Sprintf("%s/v1/spaces/%d", ts.URL, parkID))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	var body struct {
		Name   string `json:"name"`
		Rating struct {
			Label string `json:"label"`
		} `json:"rating"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Name != "Volunteer Park" || body.Rating.Label != "5.0 (1 rating)" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
