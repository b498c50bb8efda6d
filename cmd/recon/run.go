package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/ledger-recon/internal/cli"
	"github.com/Veraticus/ledger-recon/internal/common"
	"github.com/Veraticus/ledger-recon/internal/jobclient"
	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/poll"
	"github.com/Veraticus/ledger-recon/internal/workflow"
)

func runCmd() *cobra.Command {
	var (
		startDate string
		endDate   string
		live      bool
		noAI      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a reconciliation and wait for its first checkpoint",
		Long: `Starts a reconciliation for the given period and polls until the run
needs a human or finishes. Defaults to simulation mode over July 2025;
pass --live to reconcile real data for the current month.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client := initClient()
			if err := waitForService(ctx, client); err != nil {
				return err
			}

			runLog, err := initRunLog(ctx)
			if err != nil {
				slog.Warn("Local run log unavailable; runs will not be recorded", "error", err)
				runLog = nil
			} else {
				defer func() { _ = runLog.Close() }()
			}

			machine := workflow.New(client, runLog)
			machine.SetSimulation(!live)
			machine.SetEnableAI(!noAI)
			if err := applyPeriod(machine, startDate, endDate); err != nil {
				return err
			}

			if !machine.StartRun(ctx) {
				return common.NewUserError(machine.State().LastError, common.ErrRunNotStarted)
			}
			state := machine.State()
			fmt.Println(cli.FormatInfo(fmt.Sprintf("Started %s (thread %s)", state.Run.RecID, state.Run.RunToken)))

			result := pollWithProgress(ctx, machine, client)
			if result == nil {
				return common.NewUserError(
					"run did not reach a checkpoint in time; check again with 'recon status'",
					common.ErrPollTimeout)
			}
			printOutcome(machine, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "period end (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&live, "live", false, "reconcile live data instead of simulation")
	cmd.Flags().BoolVar(&noAI, "no-ai", false, "disable AI-assisted matching")
	return cmd
}

// applyPeriod overrides the default period with explicit flags. Both dates
// must be given together.
func applyPeriod(machine *workflow.Machine, startDate, endDate string) error {
	if startDate == "" && endDate == "" {
		return nil
	}
	if startDate == "" || endDate == "" {
		return fmt.Errorf("--start and --end must be used together")
	}

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("period end is before period start")
	}

	machine.SetPeriod(start, end)
	return nil
}

// pollWithProgress waits for the checkpoint with a progress bar ticking per
// poll attempt.
func pollWithProgress(ctx context.Context, machine *workflow.Machine, client *jobclient.Client) *model.StatusPayload {
	threadID, gen, ok := machine.BeginPoll()
	if !ok {
		return nil
	}

	bar := progressbar.NewOptions(poll.DefaultMaxAttempts,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reconciling...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(os.Stderr)
		}),
	)

	poller := poll.New(client)
	result := poller.Wait(ctx, threadID, func(status *model.StatusPayload) {
		_ = bar.Add(1)
		machine.Observe(status)
	})
	_ = bar.Finish()

	machine.FinishPoll(gen, result)
	return result
}

// printOutcome renders the checkpoint the run reached.
func printOutcome(machine *workflow.Machine, result *model.StatusPayload) {
	summary := machine.Summary()
	fmt.Println(cli.RenderBox("Reconciliation "+string(result.Status.Canonical()), fmt.Sprintf(
		"Matched:    %d\nExceptions: %d\nUnmatched:  %d bank / %d ledger",
		summary.MatchedCount, summary.ExceptionsCount,
		summary.UnmatchedCount, len(summary.UnmatchedGl))))

	if result.Status.Canonical() == model.StatusAwaitingReview && summary.ExceptionsCount > 0 {
		fmt.Println(cli.FormatInfo("Run 'recon console' to review exceptions."))
	}
}
