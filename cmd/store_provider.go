// File: cmd/store_provider.go
package cmd

import (
	"context"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/config"
	"github.com/xkilldash9x/jsguard/internal/observability"
	"github.com/xkilldash9x/jsguard/internal/scanner"
	"github.com/xkilldash9x/jsguard/internal/store"
)

// historyStore is the slice of the store the commands use.
type historyStore interface {
	SaveReport(ctx context.Context, report *scanner.Report) error
	FindingsByScanID(ctx context.Context, scanID string) ([]javascript.Finding, error)
	RecentScans(ctx context.Context, limit int) ([]store.ScanSummary, error)
}

// storeProvider opens the scan history store. Tests substitute it.
type storeProvider interface {
	Create(ctx context.Context, cfg config.StoreConfig) (historyStore, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the provider backed by PostgreSQL.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.StoreConfig) (historyStore, func(), error) {
	s, cleanup, err := store.Connect(ctx, cfg, observability.GetLogger())
	if err != nil {
		return nil, nil, err
	}
	return s, cleanup, nil
}
