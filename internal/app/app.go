package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"agrichain/internal/chain"
	"agrichain/internal/config"
	"agrichain/internal/content"
	"agrichain/internal/db"
	"agrichain/internal/fees"
	"agrichain/internal/journal"
	"agrichain/internal/kv"
	"agrichain/internal/ledger"
	"agrichain/internal/migrate"
	"agrichain/internal/payment"
	"agrichain/internal/store"
)

// App wires the ledger, payment, and storage components for a workspace.
type App struct {
	Config       *config.Config
	DB           *sql.DB
	Log          *slog.Logger
	Store        *store.Store
	Ledger       *ledger.Service
	Fees         fees.Calculator
	Journal      *journal.Writer
	History      *payment.History
	Orchestrator *payment.Orchestrator
}

// Options adjust how Open builds the App.
type Options struct {
	// Gateway overrides the configured payment gateway when non-nil.
	Gateway payment.Gateway
	// Logger defaults to a text handler on stderr.
	Logger *slog.Logger
}

// Open loads config from the workspace, opens the database, runs
// migrations, and builds the full component graph.
func Open(ctx context.Context, workspace string, opts Options) (*App, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	database, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	st := store.New()
	if cfg.Ledger.Seed {
		st.Seed()
	}

	jw := &journal.Writer{DB: database}
	svc := &ledger.Service{
		Store:   st,
		Chain:   buildChain(cfg),
		Content: buildContent(cfg),
		Journal: jw,
		Log:     log,
	}
	if s := cfg.Chain.TimeoutSeconds; s > 0 {
		svc.MirrorTimeout = time.Duration(s) * time.Second
	}
	if svc.Chain != nil {
		if account, err := svc.Connect(ctx); err != nil {
			log.Warn("chain connect failed, mirroring stays best effort", "error", err)
		} else {
			log.Info("chain connected", "account", account)
		}
	}

	kvs := kv.New(database)
	hist, err := payment.OpenHistory(ctx, kvs, log)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("open payment history: %w", err)
	}

	calc := fees.Calculator{
		ProcessingRate: cfg.Fees.ProcessingRate,
		GSTRate:        cfg.Fees.GSTRate,
	}

	gw := opts.Gateway
	if gw == nil && cfg.Gateway.Mode != "none" {
		gw = &payment.MockGateway{}
	}

	orch := payment.NewOrchestrator(svc, gw, hist)
	orch.Fees = calc
	orch.Currency = cfg.Ledger.Currency
	orch.Journal = jw
	orch.Log = log

	return &App{
		Config:       cfg,
		DB:           database,
		Log:          log,
		Store:        st,
		Ledger:       svc,
		Fees:         calc,
		Journal:      jw,
		History:      hist,
		Orchestrator: orch,
	}, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func buildChain(cfg *config.Config) chain.Client {
	if !cfg.Chain.Enabled {
		return nil
	}
	if cfg.Chain.Mode == "http" {
		c := &chain.HTTPClient{
			BaseURL: cfg.Chain.Endpoint,
			APIKey:  cfg.Chain.APIKey,
		}
		if s := cfg.Chain.TimeoutSeconds; s > 0 {
			c.Timeout = time.Duration(s) * time.Second
		}
		return c
	}
	return chain.NewMock()
}

func buildContent(cfg *config.Config) content.Store {
	if !cfg.Content.Enabled {
		return nil
	}
	if cfg.Content.Mode == "http" {
		return &content.HTTPGateway{BaseURL: cfg.Content.Endpoint}
	}
	return content.NewMock()
}
