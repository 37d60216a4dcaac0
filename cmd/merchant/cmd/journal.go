package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/merchant/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display journal records from a SQLite database.

Subcommands:
  trade   - Get details of a specific trade by ID
  trades  - List trades, optionally on one day
  closed  - List closed positions, optionally for one closing trade
  values  - List the portfolio value history
  summary - Count wins and losses and total realized P/L

Examples:
  merchant journal trade <trade-id>
  merchant journal trades --day 2024-01-15
  merchant journal closed --trade <trade-id>`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalTrades,
}

var journalClosedCmd = &cobra.Command{
	Use:   "closed",
	Short: "List closed positions",
	Args:  cobra.NoArgs,
	RunE:  runJournalClosed,
}

var journalValuesCmd = &cobra.Command{
	Use:   "values",
	Short: "List the portfolio value history",
	Args:  cobra.NoArgs,
	RunE:  runJournalValues,
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize closed positions",
	Args:  cobra.NoArgs,
	RunE:  runJournalSummary,
}

var (
	journalDBPath string
	journalDay    string
	journalTrade  string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalClosedCmd)
	journalCmd.AddCommand(journalValuesCmd)
	journalCmd.AddCommand(journalSummaryCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./merchant.sqlite", "path to SQLite journal DB")
	journalTradesCmd.Flags().StringVar(&journalDay, "day", "", "only trades on this UTC day (YYYY-MM-DD)")
	journalClosedCmd.Flags().StringVar(&journalTrade, "trade", "", "only positions closed by this trade ID")
}

func openDB() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	var recs []journal.TradeRecord
	if journalDay != "" {
		start, end, err := dayBounds(time.UTC, journalDay)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		recs, err = j.ListTradesBetween(start, end)
		if err != nil {
			return fmt.Errorf("query trades: %w", err)
		}
	} else {
		recs, err = j.ListTrades()
		if err != nil {
			return fmt.Errorf("query trades: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalClosed(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	var recs []journal.ClosedRecord
	if journalTrade != "" {
		recs, err = j.ListClosedByTrade(journalTrade)
	} else {
		recs, err = j.ListClosedPositions()
	}
	if err != nil {
		return fmt.Errorf("query closed positions: %w", err)
	}

	out := cmd.OutOrStdout()
	for i, c := range recs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, journal.FormatClosedOrg(c))
	}
	return nil
}

func runJournalValues(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListValues()
	if err != nil {
		return fmt.Errorf("query values: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "TIME\tVALUE\t")
	for _, v := range recs {
		fmt.Fprintf(w, "%s\t%s %s\t\n", v.Time.UTC().Format(time.RFC3339), v.Value, v.ValueSymbol)
	}
	return w.Flush()
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	s, err := j.Summarize()
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Closed positions: %d\n", s.Closed)
	fmt.Fprintf(out, "  Wins: %d\n", s.Wins)
	fmt.Fprintf(out, "  Losses: %d\n", s.Losses)
	fmt.Fprintf(out, "  Realized P/L: %s\n", s.RealizedPL)
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
