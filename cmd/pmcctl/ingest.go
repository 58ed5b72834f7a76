package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pmcbot/internal/indexer"
)

func newIngestCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest [records.jsonl]",
		Short: "Embed normalized JSONL records into the vector index",
		Long: "Reads one normalized record per line, embeds new or changed records and upserts them.\n" +
			"Defaults to RECORDS_PATH when no file is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			path := a.Config.RecordsPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no records file given and RECORDS_PATH is not set")
			}

			stats, err := a.Pipeline.IngestFile(ctx, path)
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), stats, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")
	return cmd
}

func printStats(w io.Writer, stats *indexer.IngestStats, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	_, err := fmt.Fprintf(w,
		"read %d, embedded %d (%d chunks), unchanged %d, empty %d, failed %d\nindex version %s, chunker %s\n",
		stats.RecordsRead, stats.RecordsEmbedded, stats.ChunksEmbedded,
		stats.RecordsUnchanged, stats.RecordsEmpty, stats.RecordsFailed,
		stats.IndexVersion, stats.ChunkerVersion,
	)
	return err
}
