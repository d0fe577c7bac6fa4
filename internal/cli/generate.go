package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"json-decode-bench/internal/config"
	"json-decode-bench/internal/dataset"
)

// GenerateCmd writes a synthetic dataset.
func GenerateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic weather-record dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			presetID, _ := cmd.Flags().GetString("preset")
			records, _ := cmd.Flags().GetInt("records")
			outPath, _ := cmd.Flags().GetString("out")
			seed, _ := cmd.Flags().GetInt64("seed")
			use, _ := cmd.Flags().GetBool("use")

			fileName := fmt.Sprintf("weather-%d.json", records)
			if !cmd.Flags().Changed("records") {
				preset, ok := dataset.Lookup(presetID)
				if !ok {
					return fmt.Errorf("unknown preset %q", presetID)
				}
				records = preset.Records
				fileName = preset.FileName
			}
			if strings.TrimSpace(outPath) == "" {
				outPath = filepath.Join(config.DefaultDatasetDir(), fileName)
			}

			if err := dataset.WriteFile(outPath, records, seed); err != nil {
				return fmt.Errorf("generate dataset: %w", err)
			}
			e.logger.Info("dataset written", "path", outPath, "records", records)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", records, outPath)

			if !use {
				return nil
			}
			settings, err := e.store.Load()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			settings.SourcePath = outPath
			if err := e.store.Save(settings.Normalize()); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "source path saved to settings")
			return nil
		},
	}
	cmd.Flags().String("preset", "small", "Dataset preset (tiny, small, medium, large)")
	cmd.Flags().Int("records", 0, "Record count; overrides --preset")
	cmd.Flags().StringP("out", "o", "", "Output file; defaults to the dataset directory")
	cmd.Flags().Int64("seed", 1, "Generator seed")
	cmd.Flags().Bool("use", false, "Save the generated file as the source path")
	return cmd
}
