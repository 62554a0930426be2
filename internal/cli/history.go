package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/sprstat/internal/model"
	"github.com/ppiankov/sprstat/internal/pipeline"
	"github.com/ppiankov/sprstat/internal/store"
	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List analysis runs recorded in the results database",
	Long: `History lists runs saved with --db (or output.sqlite_path), newest first.

Example:
  sprstat history --db runs.db
  sprstat history show <run-id> --db runs.db
  sprstat history delete <run-id> --db runs.db`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the summary of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.DeleteRun(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Deleted run %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.PersistentFlags().StringVar(&dbPath, "db", "", "results database (default from config)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list")
}

func withStore(cmd *cobra.Command, fn func(context.Context, *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.Output.SQLitePath = dbPath
	}
	if cfg.Output.SQLitePath == "" {
		return fmt.Errorf("no results database configured (use --db or output.sqlite_path)")
	}

	st, err := store.Open(cfg.Output.SQLitePath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cmd.Context(), st)
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st *store.Store) error {
		runs, err := st.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %5s  %6s  %6s  %-6s  %s\n",
			"RUN", "CREATED", "PPTS", "TRIALS", "OBS", "CONF", "SOURCE")
		for _, r := range runs {
			fmt.Printf("%-36s  %-19s  %5d  %6d  %6d  %-6s  %s\n",
				r.RunID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.Participants, r.TrialsKept, r.Observations, r.Confidence, r.Source)
		}
		return nil
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st *store.Store) error {
		report, err := st.LoadReport(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Print(pipeline.Markdown(report))

		means, err := st.RegionMeans(ctx, args[0])
		if err != nil {
			return err
		}
		if len(means) == 0 {
			return nil
		}
		fmt.Println("## Stored observation means")
		fmt.Println()
		fmt.Println("| Region | Hate | Neutral |\n|---|---:|---:|")
		for _, region := range model.RegionTypes {
			m, ok := means[region]
			if !ok {
				continue
			}
			fmt.Printf("| %s | %.1f | %.1f |\n", region, m[model.EmotionHate], m[model.EmotionNeutral])
		}
		return nil
	})
}
