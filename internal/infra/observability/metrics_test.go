package observability_test

import (
	"testing"

	"github.com/boddenberg/salon-pos-go/internal/infra/observability"
)

func TestSyncSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrDrain()
	m.IncrDrain()
	m.AddSyncEntries("synced", 3)
	m.AddSyncEntries("failed", 1)

	drains, synced, failed := m.SyncSnapshot()
	if drains != 2 || synced != 3 || failed != 1 {
		t.Errorf("unexpected snapshot: drains=%d synced=%d failed=%d", drains, synced, failed)
	}
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()

	a.IncrTransaction("persisted")

	if got := a.TransactionCount("persisted"); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := b.TransactionCount("persisted"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
