package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"segfetch/internal/config"
	"segfetch/internal/state"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit    int
		clearAll bool
		dbPath   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				dbPath = config.GetHistoryDBPath()
			}
			store, err := state.Open(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if clearAll {
				n, err := store.Clear()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d %s.\n", n, plural(int(n), "entry", "entries"))
				return nil
			}

			entries, err := store.List(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No downloads recorded.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSIZE\tPARTS\tTOOK\tWHEN\tPATH")
			for _, e := range entries {
				size := "-"
				if e.TotalSize > 0 {
					size = humanize.Bytes(uint64(e.TotalSize))
				}
				took := "-"
				if !e.CompletedAt.IsZero() {
					took = e.TimeTaken.Round(time.Millisecond).String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					shortID(e.ID), e.Status, size, e.Parts, took, humanize.Time(e.CreatedAt), e.DestPath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries (0 for all)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all recorded downloads")
	cmd.Flags().StringVar(&dbPath, "db", "", "History database (default: state dir)")
	_ = cmd.Flags().MarkHidden("db")
	return cmd
}
