package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"thyrd_spaces/internal/adapters/directory"
	"thyrd_spaces/internal/adapters/events"
	server "thyrd_spaces/internal/adapters/http_server"
	"thyrd_spaces/internal/adapters/observability"
	redisad "thyrd_spaces/internal/adapters/redis"
	"thyrd_spaces/internal/app"
	"thyrd_spaces/internal/domain"
	"thyrd_spaces/internal/shared"
	mysqlrepo "thyrd_spaces/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	cache := redisad.New(rc)
	notes := app.NewAnnotationService(redisad.NewAnnotations(rc, cfg.SessionTTL))

	catalog := app.NewCatalog(app.CachedSpaces(repo, cache, cfg.CacheTTL), cfg.CatalogTTL)
	catalog.OnRefresh = observability.ObserveCatalog

	var pub domain.EventPublisher = events.Noop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("nats connect failed")
		}
		defer nc.Close()
		pub = events.NewPublisher(nc)
	}

	var accounts domain.AccountDirectory = app.NewRepoAccounts(repo)
	if cfg.AccountsSource == "remote" {
		dc, err := directory.New(cfg.DirectoryBase, cfg.DirectoryKind, cfg.DirectoryKey, cfg.DirectoryRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize directory client")
		}
		log.Info().Str("backend", string(dc.Backend())).Msg("accounts served by directory")
		accounts = dc
	}

	tx, err := shared.LoadTaxonomy(cfg.TaxonomyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("taxonomy load failed")
	}

	q := app.NewQueryService(repo, cache, cfg.CacheTTL, catalog)

	// http
	srv := server.New(cfg.CORSOrigins)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Q:           q,
		C:           app.NewCommandService(repo, cache, catalog, notes, pub),
		A:           app.NewAccountService(accounts, notes, q),
		Taxonomy:    tx,
		PageSize:    cfg.PageSize,
		MaxPageSize: cfg.MaxPageSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
