package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/address-geocoder/internal/cache"
	"github.com/sells-group/address-geocoder/internal/model"
	"github.com/sells-group/address-geocoder/internal/normalize"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the lookup cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts by outcome",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		store, err := cache.Open(cmd.Context(), cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		entries, err := store.Load(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "cache stats")
		}
		s := countOutcomes(entries)
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "driver:     %s\n", cfg.Cache.Driver)
		fmt.Fprintf(w, "entries:    %d\n", s.Total)
		fmt.Fprintf(w, "resolved:   %d\n", s.Resolved)
		fmt.Fprintf(w, "not found:  %d\n", s.NotFound)
		fmt.Fprintf(w, "faulted:    %d\n", s.Faulted)
		return nil
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <address>",
	Short: "Print the cached outcome for an address",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		store, err := cache.Open(cmd.Context(), cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if _, err := store.Load(cmd.Context()); err != nil {
			return eris.Wrap(err, "cache get")
		}

		key := normalize.New(cfg.Normalize.Expansions...).Normalize(strings.Join(args, " "))
		out, ok := store.Get(key)
		if !ok {
			return eris.Errorf("cache: %q is not cached", key)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"address": key, "outcome": out})
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheGetCmd)
	rootCmd.AddCommand(cacheCmd)
}

type outcomeCounts struct {
	Total, Resolved, NotFound, Faulted int
}

func countOutcomes(entries map[string]model.ResolutionOutcome) outcomeCounts {
	c := outcomeCounts{Total: len(entries)}
	for _, o := range entries {
		switch {
		case o.Succeeded:
			c.Resolved++
		case o.IsFault():
			c.Faulted++
		default:
			c.NotFound++
		}
	}
	return c
}
