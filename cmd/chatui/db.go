package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/chatui/internal/errors"
	"github.com/vango-dev/chatui/pkg/backup"
)

func dbCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect, export and import the chat database",
	}
	cmd.AddCommand(
		dbStoresCmd(flags),
		dbDumpCmd(flags),
		dbExportCmd(flags),
		dbImportCmd(flags),
	)
	return cmd
}

func dbStoresCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List the stores with their indexes and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (version %d)\n", db.Name(), db.Version())
			for _, name := range db.StoreNames() {
				n, err := db.CountData(cmd.Context(), name)
				if err != nil {
					return err
				}
				si, _ := db.StoreInfo(name)
				fmt.Fprintf(w, "  %-10s %6d records", name, n)
				if si.KeyPath != "" {
					fmt.Fprintf(w, "  key: %s", si.KeyPath)
				}
				for _, ix := range si.Indexes {
					fmt.Fprintf(w, "  [%s]", ix.Name)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func dbDumpCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <store>",
		Short: "Print every record of a store as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if !slices.Contains(db.StoreNames(), args[0]) {
				return errors.New("E160").
					WithDetailf("store %q does not exist", args[0]).
					WithSuggestion("Run 'chatui db stores' to list the stores")
			}
			entries, err := db.GetAllEntries(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	}
}

func dbExportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write a snapshot of the database",
		Long: `Write a snapshot of every store to file, or to stdout when no file is given.

Examples:
  chatui db export chats.json
  chatui db export > chats.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			snap, err := backup.Take(cmd.Context(), db, time.Now())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return backup.Write(cmd.OutOrStdout(), snap)
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := backup.Write(f, snap); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			success(cmd.ErrOrStderr(), "Exported %d stores to %s", len(snap.Stores), args[0])
			return nil
		},
	}
}

func dbImportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a snapshot into the database",
		Long: `Load a snapshot written by 'chatui db export'. Records replace those
with the same key; stores missing from the database are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			snap, err := backup.Read(f)
			if err != nil {
				return err
			}
			return restore(cmd, cfg, snap)
		},
	}
}

func printSkipped(w io.Writer, skipped []string) {
	for _, name := range skipped {
		info(w, "skipped unknown store %s", name)
	}
}
