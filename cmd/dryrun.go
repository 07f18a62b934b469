package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/sells-group/address-geocoder/internal/config"
	"github.com/sells-group/address-geocoder/internal/dataset"
	"github.com/sells-group/address-geocoder/internal/normalize"
)

// dryRunStats describes what a run would do against the current cache.
type dryRunStats struct {
	Rows          int
	DistinctKeys  int
	CachedKeys    int
	PendingLookup int
}

// dryRun reads the input and the cache and reports how many lookups a run
// would make. It never contacts the provider and writes nothing. With
// retryFaults, cached faults count as pending, as they would in the run.
func dryRun(ctx context.Context, c *config.Config, limit int, retryFaults bool, w io.Writer) error {
	if err := c.Validate("run"); err != nil {
		return err
	}
	inputs, err := dataset.ReadInput(c.Input.Path, dataset.InputOptions{
		AddressColumn: c.Input.AddressColumn,
		GroupColumn:   c.Input.GroupColumn,
		Sheet:         c.Input.Sheet,
		Limit:         limit,
	})
	if err != nil {
		return err
	}
	store, err := openCache(ctx, c.Cache)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	n := normalize.New(c.Normalize.Expansions...)
	seen := make(map[string]struct{})
	stats := dryRunStats{Rows: len(inputs)}
	for _, in := range inputs {
		key := n.Normalize(in.OriginalText)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if out, ok := store.Get(key); ok && !(retryFaults && out.IsFault()) {
			stats.CachedKeys++
		} else {
			stats.PendingLookup++
		}
	}
	stats.DistinctKeys = len(seen)

	zap.L().Info("dry run",
		zap.Int("rows", stats.Rows),
		zap.Int("distinct", stats.DistinctKeys),
		zap.Int("cached", stats.CachedKeys),
		zap.Int("pending", stats.PendingLookup),
		zap.Bool("retry_faults", retryFaults),
	)
	fmt.Fprintf(w, "rows:             %d\n", stats.Rows)
	fmt.Fprintf(w, "distinct keys:    %d\n", stats.DistinctKeys)
	fmt.Fprintf(w, "cached:           %d\n", stats.CachedKeys)
	fmt.Fprintf(w, "pending lookups:  %d\n", stats.PendingLookup)
	return nil
}
