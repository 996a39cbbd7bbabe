package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitly/tryon/internal/app"
	"github.com/fitly/tryon/pkg/errors"
	appfsm "github.com/fitly/tryon/pkg/fsm"
	"github.com/fitly/tryon/pkg/garment"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/superfly/fsm"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Try on garments with a photo and wait for the result",
	Example: `  tryon run --photo me.jpg --upper https://cdn.example.com/shirt.jpg
  tryon run --photo me.jpg --upper catalog/shirt.jpg --lower catalog/jeans.jpg`,
	Args: cobra.NoArgs,
	RunE: runTryOn,
}

func init() {
	runCmd.Flags().String("photo", "", "Path to the user photo")
	runCmd.Flags().String("upper", "", "Upper garment image (URL, s3://bucket/key, local file path or bare S3 key)")
	runCmd.Flags().String("lower", "", "Lower garment image (URL, s3://bucket/key, local file path or bare S3 key)")
	runCmd.Flags().String("mode", "", "Try-on mode (upper, lower, combo); derived from the garments when empty")
	runCmd.MarkFlagRequired("photo")
	rootCmd.AddCommand(runCmd)
}

func runTryOn(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	photoPath, _ := cmd.Flags().GetString("photo")
	upperRef, _ := cmd.Flags().GetString("upper")
	lowerRef, _ := cmd.Flags().GetString("lower")
	modeName, _ := cmd.Flags().GetString("mode")

	sel, err := selectionFromFlags(upperRef, lowerRef, modeName)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := app.EnsureDirectories(historyDBPath(cfg), cfg.FSMDBPath); err != nil {
		return err
	}

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "app init failed")
	}
	defer a.Close()

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := appfsm.NewMachine(a.Builder, a.Service, a.Poller, a.History, a.Validator)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	snap := sel.Snapshot()
	runID := uuid.NewString()
	req := &appfsm.TryOnRequest{
		RunID:     runID,
		PhotoPath: photoPath,
		Upper:     snap.Upper,
		Lower:     snap.Lower,
	}
	resp := &appfsm.TryOnResponse{}

	version, err := start(ctx, runID, fsm.NewRequest(req, resp))
	if err != nil {
		return errors.Wrap(err, "FSM start failed")
	}

	slog.Info("fsm started", "run_id", runID, "version", version)

	waitErr := manager.Wait(ctx, version)

	outcome, _ := machine.Outcome(runID)
	if outcome.Status != appfsm.StatusCompleted {
		if outcome.ErrorMessage != "" {
			return fmt.Errorf("try-on failed: %s", outcome.ErrorMessage)
		}
		if waitErr != nil {
			return errors.Wrap(waitErr, "FSM execution failed")
		}
		return fmt.Errorf("try-on did not complete")
	}

	slog.Info("run completed", "run_id", runID, "task_id", outcome.TaskID, "attempts", outcome.Attempts)
	fmt.Fprintf(cmd.OutOrStdout(), "task:   %s\ntype:   %s\nresult: %s\n", outcome.TaskID, outcome.ClothType, outcome.ResultImageURL)
	return nil
}

// selectionFromFlags fills the slots the way the product screen does: the
// mode decides which slot a pick lands in.
func selectionFromFlags(upperRef, lowerRef, modeName string) (*garment.Selection, error) {
	if upperRef == "" && lowerRef == "" {
		return nil, fmt.Errorf("at least one of --upper or --lower is required")
	}

	mode := garment.ModeCombo
	switch {
	case modeName != "":
		m, err := garment.ParseMode(modeName)
		if err != nil {
			return nil, err
		}
		mode = m
	case lowerRef == "":
		mode = garment.ModeUpper
	case upperRef == "":
		mode = garment.ModeLower
	}

	sel := garment.NewSelection()
	sel.SetMode(mode)
	if upperRef != "" && mode != garment.ModeLower {
		sel.SetActiveSlot(garment.SlotUpper)
		sel.SelectProduct(garment.Product{ID: "upper", Title: upperRef, ImageURL: upperRef})
	}
	if lowerRef != "" && mode != garment.ModeUpper {
		sel.SetActiveSlot(garment.SlotLower)
		sel.SelectProduct(garment.Product{ID: "lower", Title: lowerRef, ImageURL: lowerRef})
	}
	if sel.Empty() {
		return nil, fmt.Errorf("mode %s selects none of the given garments", mode)
	}
	return sel, nil
}
