package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/auction-live/internal/api"
	"github.com/rickgao/auction-live/internal/bidding"
	"github.com/rickgao/auction-live/internal/config"
	"github.com/rickgao/auction-live/internal/connection"
	"github.com/rickgao/auction-live/internal/database"
	"github.com/rickgao/auction-live/internal/display"
	"github.com/rickgao/auction-live/internal/history"
	"github.com/rickgao/auction-live/internal/journal"
	"github.com/rickgao/auction-live/internal/reconcile"
)

const shutdownTimeout = 10 * time.Second

// app holds the components shared by every command.
type app struct {
	cfg    *config.AppConfig
	logger *slog.Logger
	api    *api.Client
	format *display.Formatter

	pool    *pgxpool.Pool   // Nil unless the journal is enabled
	journal *journal.Writer // Nil unless the journal is enabled
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	format, err := display.New(cfg.Display.Locale)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.API.Location()
	if err != nil {
		return nil, fmt.Errorf("api.time_zone: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		format: format,
		api: api.NewClient(
			cfg.API.RestURL,
			cfg.API.Token,
			api.WithLogger(logger),
			api.WithTimeout(cfg.API.Timeout),
			api.WithRetries(cfg.API.MaxRetries, 500*time.Millisecond),
			api.WithLocation(loc),
		),
	}

	if !cfg.Journal.Enabled {
		return a, nil
	}

	logger.Info("connecting to journal database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect journal database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	a.pool = pool
	a.journal = journal.NewWriter(journal.Config{
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
		BufferSize:    cfg.Journal.BufferSize,
	}, pool, logger)
	if err := a.journal.Start(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

// close flushes the journal and releases the pool.
func (a *app) close() {
	if a.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.journal.Stop(ctx); err != nil {
			a.logger.Warn("journal flush incomplete", "error", err)
		}
		cancel()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// channel builds the push channel client from config.
func (a *app) channel() *connection.Channel {
	return connection.NewChannel(connection.ChannelConfig{
		BaseURL:         a.cfg.API.StreamURL,
		Token:           a.cfg.API.Token,
		Transport:       connection.Transport(a.cfg.Stream.Transport),
		PingTimeout:     a.cfg.Stream.PingTimeout,
		WriteTimeout:    a.cfg.Stream.WriteTimeout,
		BufferSize:      a.cfg.Stream.BufferSize,
		EventBufferSize: a.cfg.Stream.EventBufferSize,
	}, a.logger)
}

// registry builds an engine registry backed by the REST client and push channel.
func (a *app) registry() *reconcile.Registry {
	rc := a.cfg.Reconcile
	return reconcile.NewRegistry(reconcile.Config{
		RefreshDebounce:     rc.RefreshDebounce,
		PollInterval:        rc.PollInterval,
		TickInterval:        rc.TickInterval,
		ResubscribeBaseWait: rc.ResubscribeBaseDelay,
		ResubscribeMaxWait:  rc.ResubscribeMaxDelay,
		FetchTimeout:        a.cfg.API.Timeout,
		DefaultMinBidStep:   a.cfg.Bidding.DefaultMinBidStep,
	}, a.api, reconcile.ChannelSubscriber{Channel: a.channel()}, a.logger)
}

// coordinator builds a bid coordinator over the registry's views.
func (a *app) coordinator(views bidding.ViewStore) *bidding.Coordinator {
	opts := []bidding.Option{bidding.WithLogger(a.logger)}
	if a.journal != nil {
		opts = append(opts, bidding.WithRecorder(a.journal))
	}
	return bidding.NewCoordinator(a.api, views, opts...)
}

// book builds a bid history book for one auction.
func (a *app) book(auctionID string) *history.Book {
	return history.NewBook(auctionID, history.Config{
		LatestSize: a.cfg.History.LatestSize,
		PageSize:   a.cfg.History.PageSize,
	}, a.api, a.logger)
}

func closeRegistry(r *reconcile.Registry, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.CloseAll(ctx); err != nil {
		logger.Warn("engines did not stop cleanly", "error", err)
	}
}
