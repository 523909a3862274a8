package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/cache"
	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached translations",
	}

	var jsonOut bool
	var maxBytes int64

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show entry count and total size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *cache.Store) error {
				s := store.Stats()
				if jsonOut {
					return writeJSON(a.stdout, map[string]int64{
						"count":       int64(s.Count),
						"total_bytes": s.TotalBytes,
					})
				}
				fmt.Fprintf(a.stdout, "Entries:  %d\n", s.Count)
				fmt.Fprintf(a.stdout, "Size:     %s\n", cache.FormatBytes(s.TotalBytes))
				return nil
			})
		},
	}
	stats.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached pages, oldest first by insertion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *cache.Store) error {
				entries := store.List()
				if jsonOut {
					if entries == nil {
						entries = []cache.Entry{}
					}
					return writeJSON(a.stdout, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(a.stdout, "Cache is empty.")
					return nil
				}

				tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tSIZE\tAGE\tURL")
				now := time.Now()
				for _, e := range entries {
					age := now.Sub(time.UnixMilli(e.Timestamp)).Round(time.Second)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Key, cache.FormatBytes(e.SizeBytes), age, e.SourceURL)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	del := &cobra.Command{
		Use:   "delete <url>",
		Short: "Delete the entry a page URL resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *cache.Store) error {
				deleted, err := store.DeleteByURL(args[0])
				if err != nil {
					return err
				}
				if deleted {
					fmt.Fprintf(a.stdout, "Deleted cache entry for %s\n", args[0])
				} else {
					fmt.Fprintf(a.stdout, "No cache entry matches %s\n", args[0])
				}
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *cache.Store) error {
				n := store.Stats().Count
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Cleared %d entries\n", n)
				return nil
			})
		},
	}

	export := &cobra.Command{
		Use:   "export <file>",
		Short: "Write all entries to a JSON file (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *cache.Store) error {
				meta := map[string]string{"generator": pagetl.UserAgent()}
				exporter := cache.NewExporter(store)
				if args[0] == "-" {
					return exporter.Export(a.stdout, meta)
				}
				if err := exporter.ExportToFile(args[0], meta); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Exported %d entries to %s\n", store.Stats().Count, args[0])
				return nil
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore entries from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *cache.Store) error {
				result, err := cache.NewImporter(store, maxBytes).ImportFromFile(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Imported %d entries", result.Imported)
				if result.Failed > 0 {
					fmt.Fprintf(a.stdout, " (%d failed)", result.Failed)
				}
				fmt.Fprintln(a.stdout)
				return nil
			})
		},
	}
	imp.Flags().Int64Var(&maxBytes, "max-cache-bytes", pagetl.DefaultConfig().MaxTotalBytes, "Budget for all cached translations")

	cmd.AddCommand(stats, list, del, clearCmd, export, imp)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func (a *app) withStore(fn func(store *cache.Store) error) error {
	store, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(store)
}
