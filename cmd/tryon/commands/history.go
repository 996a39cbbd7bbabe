package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fitly/tryon/internal/app"
	"github.com/fitly/tryon/internal/config"
	"github.com/fitly/tryon/pkg/errors"
	"github.com/fitly/tryon/pkg/garment"
	"github.com/fitly/tryon/pkg/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past try-on results",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past results, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one past result",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <task-id>",
	Short: "Remove one past result",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryRm,
}

func init() {
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRmCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := app.EnsureDirectories(historyDBPath(cfg), ""); err != nil {
		return nil, err
	}
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "app init failed")
	}
	return a, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	a, err := openHistory(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.History.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results found")
		return nil
	}
	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

func printEntries(out io.Writer, entries []history.Entry) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tWHEN\tTYPE\tUPPER\tLOWER\tRESULT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.ClothType,
			productTitle(e.Upper),
			productTitle(e.Lower),
			e.ResultImageURL)
	}
	tw.Flush()
}

func productTitle(p *garment.Product) string {
	if p == nil {
		return "-"
	}
	if p.Title != "" {
		return p.Title
	}
	return p.ID
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	a, err := openHistory(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	e, ok := a.History.Get(args[0])
	if !ok {
		return fmt.Errorf("no result with task id %s", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "task:   %s\n", e.ID)
	fmt.Fprintf(out, "when:   %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "type:   %s\n", e.ClothType)
	fmt.Fprintf(out, "upper:  %s\n", productTitle(e.Upper))
	fmt.Fprintf(out, "lower:  %s\n", productTitle(e.Lower))
	if e.Photo != nil {
		fmt.Fprintf(out, "photo:  %s %dx%d (%d bytes)\n", e.Photo.MIMEType, e.Photo.Width, e.Photo.Height, e.Photo.Size)
	}
	fmt.Fprintf(out, "result: %s\n", e.ResultImageURL)
	return nil
}

func runHistoryRm(cmd *cobra.Command, args []string) error {
	a, err := openHistory(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.History.Remove(cmd.Context(), args[0])
	if err != nil {
		return errors.Wrap(err, "remove failed")
	}
	if !removed {
		return fmt.Errorf("no result with task id %s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

// historyDBPath is the file whose directory must exist before the history
// backend opens it.
func historyDBPath(cfg *config.Config) string {
	switch cfg.History.Backend {
	case config.BackendSQLite, config.BackendFile:
		return cfg.History.Path
	}
	return ""
}
