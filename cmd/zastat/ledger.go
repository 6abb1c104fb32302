package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"zastat/internal/storage"
)

var (
	ledgerRun    string
	ledgerFailed bool
	ledgerFormat string
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show what a cards run produced, skipped and failed",
	Long: `Read the run ledger (storage.path in zastat.toml) and list the cards
and skipped mass points of the latest run, or of --run.

Examples:
  zastat ledger
  zastat ledger --failed
  zastat ledger --run 3f6c... --format json`,
	RunE: runLedger,
}

func init() {
	ledgerCmd.Flags().StringVar(&ledgerRun, "run", "", "Run ID (default latest)")
	ledgerCmd.Flags().BoolVar(&ledgerFailed, "failed", false, "Only failed cards")
	ledgerCmd.Flags().StringVar(&ledgerFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(ledgerCmd)
}

// LedgerResponse is the json form of one run.
type LedgerResponse struct {
	Run   *storage.Run    `json:"run,omitempty"`
	Cards []*storage.Card `json:"cards"`
	Skips []*storage.Skip `json:"skips"`
}

func runLedger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := storage.Open(outputPath(cfg, cfg.Storage.Path), nil)
	if err != nil {
		return err
	}
	defer db.Close()
	l := storage.NewLedger(db)

	resp := &LedgerResponse{}
	runID := ledgerRun
	if runID == "" {
		run, err := l.LatestRun()
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
			return nil
		}
		resp.Run = run
		runID = run.ID
	}

	cards, err := l.ListCards(runID)
	if err != nil {
		return err
	}
	for _, c := range cards {
		if !ledgerFailed || c.Status == storage.StatusFailed {
			resp.Cards = append(resp.Cards, c)
		}
	}
	if !ledgerFailed {
		if resp.Skips, err = l.ListSkips(runID); err != nil {
			return err
		}
	}

	switch ledgerFormat {
	case "json":
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "human":
		formatLedgerHuman(cmd.OutOrStdout(), runID, resp)
	default:
		return fmt.Errorf("unsupported format: %s", ledgerFormat)
	}
	return nil
}

func formatLedgerHuman(w io.Writer, runID string, resp *LedgerResponse) {
	fmt.Fprintf(w, "Run %s\n", runID)
	if r := resp.Run; r != nil {
		fmt.Fprintf(w, "  %s %s %s era=%s output=%s\n", r.THDM, r.Mode, r.Method, r.Era, r.Output)
		fmt.Fprintf(w, "  started %s", r.StartedAt.Format("2006-01-02 15:04:05"))
		if r.FinishedAt != nil {
			fmt.Fprintf(w, ", finished %s", r.FinishedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, strings.Repeat("─", 50))

	for _, c := range resp.Cards {
		fmt.Fprintf(w, "%-6s %-13s %-11s %s", c.Status, c.Level, c.MassPoint, c.Path)
		if c.Error != "" {
			fmt.Fprintf(w, "\n       %s", c.Error)
		}
		fmt.Fprintln(w)
	}
	if len(resp.Skips) > 0 {
		fmt.Fprintf(w, "\nSkipped (%d)\n", len(resp.Skips))
		for _, s := range resp.Skips {
			fmt.Fprintf(w, "  %-13s %-11s %s\n", s.Level, s.MassPoint, s.Reason)
		}
	}
}
