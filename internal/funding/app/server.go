// Package server wires the funding runtime: storage, domain service, and the
// event dispatch lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/tranche.fund/internal/funding/domain"
	"github.com/louisbranch/tranche.fund/internal/funding/event"
	"github.com/louisbranch/tranche.fund/internal/funding/ledger"
	fundingsqlite "github.com/louisbranch/tranche.fund/internal/funding/storage/sqlite"
	"github.com/louisbranch/tranche.fund/internal/platform/config"
)

type serverEnv struct {
	DBPath string `env:"TRANCHE_FUND_FUNDING_DB_PATH"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "funding.db")
	}
	return cfg
}

// Options configures a funding server.
type Options struct {
	// DBPath overrides the storage path from the environment.
	DBPath string
	// DispatchInterval is the outbox drain cadence. Zero means 5s.
	DispatchInterval time.Duration
	// DispatchBatchSize caps events delivered per drain pass. Zero means 50.
	DispatchBatchSize int
	// Sink receives dispatched events. Nil means the process log.
	Sink event.Sink
}

// Server hosts the funding domain service and its event dispatch loop.
type Server struct {
	store      *fundingsqlite.Store
	service    *domain.Service
	dispatcher *event.Dispatcher
	interval   time.Duration
}

// New creates a configured funding server.
func New(opts Options) (*Server, error) {
	dbPath := strings.TrimSpace(opts.DBPath)
	if dbPath == "" {
		dbPath = loadServerEnv().DBPath
	}

	store, err := openFundingStore(dbPath)
	if err != nil {
		return nil, err
	}

	adapter := newDomainStoreAdapter(store, store)
	journal := ledger.NewJournal(store)
	service := domain.NewService(adapter, journal, nil, nil)

	sink := opts.Sink
	if sink == nil {
		sink = event.LogSink()
	}
	dispatcher := event.NewDispatcher(adapter, sink, nil, opts.DispatchBatchSize)

	interval := opts.DispatchInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Server{
		store:      store,
		service:    service,
		dispatcher: dispatcher,
		interval:   interval,
	}, nil
}

// Service exposes the funding domain use-cases.
func (s *Server) Service() *domain.Service {
	if s == nil {
		return nil
	}
	return s.service
}

// Run creates and serves a funding server until context cancellation.
func Run(ctx context.Context, opts Options) error {
	server, err := New(opts)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve drains the event outbox until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("funding server ready, dispatching events every %s", s.interval)
	err := s.dispatcher.Run(ctx, s.interval)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("run event dispatcher: %w", err)
}

// Close releases funding server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close funding store: %v", err)
		}
	}
}

func openFundingStore(path string) (*fundingsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := fundingsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open funding store: %w", err)
	}
	return store, nil
}
