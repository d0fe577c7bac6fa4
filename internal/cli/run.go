package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"json-decode-bench/internal/bench"
	"json-decode-bench/internal/domain"
	"json-decode-bench/internal/metrics"
	"json-decode-bench/internal/source"
)

// RunCmd decodes the source once per file and prints the summary.
func RunCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single benchmark job",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := e.resolveSettings(cmd)
			if err != nil {
				return err
			}
			quiet, _ := cmd.Flags().GetBool("quiet")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine := bench.NewEngine(e.logger, metrics.New())
			defer engine.Close()

			params := settings.Parameters()
			loader := source.ForPath(settings.SourcePath)
			out := cmd.OutOrStdout()

			result, err := engine.Runner.Run(ctx, bench.Request{
				Params: params,
				Loader: loader,
				OnPhase: func(status domain.JobStatus) {
					if !quiet {
						fmt.Fprintf(cmd.ErrOrStderr(), "phase: %s\n", status)
					}
				},
			})
			if err != nil {
				return fmt.Errorf("%s job failed: %w", params.Strategy, err)
			}

			fmt.Fprintf(out, "source:   %s\n", source.Describe(loader))
			fmt.Fprintf(out, "strategy: %s (width %d, codec %s)\n", params.Strategy, params.ConcurrencyWidth, params.Codec)
			fmt.Fprintf(out, "files:    %d\n", params.ReplicationFactor)
			fmt.Fprintf(out, "items:    %d\n", result.TotalItemCount)
			fmt.Fprintf(out, "elapsed:  %d ms\n", result.ElapsedMillis)
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().BoolP("quiet", "q", false, "Do not print phase changes")
	return cmd
}

// runOnce executes one job and returns its result and error.
func runOnce(ctx context.Context, runner *bench.Runner, params domain.JobParameters, loader source.Loader) (domain.JobResult, error) {
	return runner.Run(ctx, bench.Request{Params: params, Loader: loader})
}
