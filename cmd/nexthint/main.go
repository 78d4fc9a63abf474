package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"nexthint/internal/api"
	"nexthint/internal/notify"
	"nexthint/internal/recurrence"
	"nexthint/internal/refresher"
	"nexthint/internal/store"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "HTTP bind address")
		dbPath      = flag.String("db", "nexthint.db", "SQLite DB path")
		refresh     = flag.Duration("refresh", 15*time.Second, "refresh interval for authoritative next-trigger metadata")
		concurrency = flag.Int("concurrency", 8, "max concurrent trigger refreshes")
		notifyURL   = flag.String("notify", "", "callback URL for next-trigger updates (optional)")
		debug       = flag.Bool("debug", false, "expose pprof endpoints")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", *dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := store.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	repo := store.NewSQLiteRepo(db)
	resolver := recurrence.NewResolver(nil)
	hook := notify.NewWebhook(*notifyURL, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	svc := refresher.NewService(repo, resolver, hook, *concurrency, *refresh)
	go svc.Start(ctx)

	srv := &http.Server{Addr: *addr, Handler: api.NewServerWithDebug(repo, resolver, *debug)}
	go func() {
		log.Info().Str("addr", *addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")
	cancel()
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
}
