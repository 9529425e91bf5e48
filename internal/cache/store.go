// Package cache persists fetched block summaries so later runs only
// fetch the missing height suffix.
package cache

import (
	"github.com/tn-tools/leasepay/internal/ledger"
	"github.com/tn-tools/leasepay/internal/models"
)

// Store is a durable, append-only record of block summaries.
type Store interface {
	// Load reads every cached summary in ascending height order;
	// empty if no cache exists yet. A record that fails to parse is
	// treated as cache corruption and returned as an error.
	Load() ([]models.BlockSummary, error)

	// Append writes one summary, durably flushed before the next
	// write, so an interrupted run leaves a valid prefix. Re-appending
	// an already-cached height is harmless.
	Append(summary models.BlockSummary) error

	// Commit marks the cache complete for the requested range; called
	// once after all appends succeed.
	Commit() error

	// Close releases the store's resources.
	Close() error
}

// ResumeHeight returns the first height a run still has to fetch given
// what the cache already holds.
func ResumeHeight(cached []models.BlockSummary) uint64 {
	if len(cached) == 0 {
		return ledger.FirstHeightWithLeases
	}
	return cached[len(cached)-1].Height + 1
}
