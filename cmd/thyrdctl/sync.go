package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	redisad "thyrd_spaces/internal/adapters/redis"
	"thyrd_spaces/internal/app"
	"thyrd_spaces/internal/shared"
	mysqlrepo "thyrd_spaces/internal/storage/mysql"
)

func syncCmd() *cobra.Command {
	var ids []int64
	var workers int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy spaces from the upstream directory into MySQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), ids, workers)
		},
	}
	cmd.Flags().Int64SliceVar(&ids, "id", nil, "Sync only these space ids")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent imports (default SYNC_WORKERS)")
	return cmd
}

func runSync(ctx context.Context, ids []int64, workers int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := shared.Load()
	if workers <= 0 {
		workers = cfg.Workers
	}

	log.Info().
		Str("base", cfg.DirectoryBase).
		Int("workers", workers).
		Int("ids", len(ids)).
		Msg("sync starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	client, err := newDirectory(cfg)
	if err != nil {
		return err
	}
	cache := redisad.New(redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB))
	svc := app.NewSyncService(client, mysqlrepo.New(db), cache)

	// Either a targeted list of ids or the full upstream listing.
	var jobs []func(context.Context) (int64, error)
	if len(ids) > 0 {
		for _, id := range ids {
			id := id
			jobs = append(jobs, func(ctx context.Context) (int64, error) { return id, svc.SyncByID(ctx, id) })
		}
	} else {
		spaces, err := svc.FetchAll(ctx)
		if err != nil {
			return fmt.Errorf("list upstream spaces: %w", err)
		}
		for _, sp := range spaces {
			sp := sp
			jobs = append(jobs, func(ctx context.Context) (int64, error) { return sp.ID, svc.Import(ctx, sp) })
		}
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed atomic.Int32

	for _, job := range jobs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("semaphore acquire: %w", err)
		}
		wg.Add(1)
		go func(job func(context.Context) (int64, error)) {
			defer wg.Done()
			defer sem.Release(1)

			id, err := job(ctx)
			if err != nil {
				failed.Add(1)
				log.Warn().Int64("id", id).Err(err).Msg("sync failed")
				return
			}
			log.Debug().Int64("id", id).Msg("sync ok")
		}(job)
	}
	wg.Wait()

	log.Info().Int("total", len(jobs)).Int32("failed", failed.Load()).Msg("sync completed")
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d spaces failed to sync", n, len(jobs))
	}
	return nil
}
