package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"json-decode-bench/internal/bench"
	"json-decode-bench/internal/domain"
	"json-decode-bench/internal/metrics"
	"json-decode-bench/internal/source"
)

var compareStrategies = []domain.Strategy{
	domain.StrategySequential,
	domain.StrategyBoundedPool,
	domain.StrategySystemDefault,
}

// comparison aggregates rounds of one strategy.
type comparison struct {
	params  domain.JobParameters
	items   int
	best    int64
	total   int64
	rounds  int
	failure string
}

// CompareCmd runs every strategy with the same width, files and codec.
func CompareCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run every strategy on the same input and print a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := e.resolveSettings(cmd)
			if err != nil {
				return err
			}
			rounds, _ := cmd.Flags().GetInt("rounds")
			if rounds < 1 {
				return fmt.Errorf("--rounds must be at least 1")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine := bench.NewEngine(e.logger, metrics.New())
			defer engine.Close()
			loader := source.ForPath(settings.SourcePath)

			rows := make([]comparison, 0, len(compareStrategies))
			for _, strategy := range compareStrategies {
				params := domain.NewJobParameters(settings.Threads, settings.Files, strategy, settings.Codec)
				row := comparison{params: engine.Runner.Scheduler().Clamp(params)}
				for i := 0; i < rounds; i++ {
					result, err := runOnce(ctx, engine.Runner, params, loader)
					if err != nil {
						if bench.Kind(err) == bench.KindCancelled {
							return err
						}
						row.failure = err.Error()
						break
					}
					row.items = result.TotalItemCount
					row.total += result.ElapsedMillis
					row.rounds++
					if row.rounds == 1 || result.ElapsedMillis < row.best {
						row.best = result.ElapsedMillis
					}
				}
				rows = append(rows, row)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "source: %s\n", source.Describe(loader))
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STRATEGY\tWIDTH\tFILES\tITEMS\tBEST MS\tMEAN MS\tSTATUS")
			var failed bool
			for _, row := range rows {
				status := "ok"
				mean := int64(0)
				if row.rounds > 0 {
					mean = row.total / int64(row.rounds)
				}
				if row.failure != "" {
					status = row.failure
					failed = true
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
					row.params.Strategy,
					row.params.ConcurrencyWidth,
					row.params.ReplicationFactor,
					row.items,
					row.best,
					mean,
					status,
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed {
				return errors.New("one or more strategies failed")
			}
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Int("rounds", 3, "Runs per strategy")
	return cmd
}
