package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mica/internal/driver"
	"mica/internal/project"
	"mica/internal/source"
)

var (
	lowerTarget    string
	lowerStage     string
	lowerFormat    string
	lowerDebugInfo bool
	lowerOutDir    string
)

func init() {
	lowerCmd.Flags().StringVar(&lowerTarget, "target", "", "target backend (default from mica.toml, else eravm)")
	lowerCmd.Flags().StringVar(&lowerStage, "stage", "", "pipeline stage to materialize (mid|lowered)")
	lowerCmd.Flags().StringVar(&lowerFormat, "format", "", "output format (text|binary)")
	lowerCmd.Flags().BoolVarP(&lowerDebugInfo, "debug-info", "g", false, "attribute emitted operations with source locations")
	lowerCmd.Flags().StringVarP(&lowerOutDir, "output", "o", "", "write outputs into this directory instead of stdout")
}

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] <contract.json>...",
	Short: "Lower contract ASTs to the target module form",
	Long: `Lower reads typed contract ASTs exported by the front end (JSON),
runs the lowering pipeline, and prints or writes the resulting module.
Defaults come from the nearest mica.toml; flags override it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: lowerExecution,
}

func lowerExecution(cmd *cobra.Command, args []string) error {
	job, err := resolveJob(cmd)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}

	fset := source.NewFileSet()
	results, err := driver.CompileFiles(cmd.Context(), fset, args, job, jobs)
	if err != nil {
		return err
	}

	if lowerOutDir == "" {
		if job.Format == driver.FormatBinary {
			return errors.New("binary output needs --output; refusing to write it to stdout")
		}
		out := cmd.OutOrStdout()
		for _, res := range results {
			if _, err := out.Write(res.Output); err != nil {
				return err
			}
		}
		return nil
	}

	if err := os.MkdirAll(lowerOutDir, 0o755); err != nil {
		return err
	}
	for _, res := range results {
		path := filepath.Join(lowerOutDir, outputName(res.Path, job.Format))
		if err := os.WriteFile(path, res.Output, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

// resolveJob merges manifest defaults with explicit flags; a set flag wins
// over the manifest.
func resolveJob(cmd *cobra.Command) (driver.Job, error) {
	cfg := project.BuildConfig{}
	manifest, found, err := project.LoadManifest(".")
	if err != nil {
		return driver.Job{}, err
	}
	if found {
		cfg = manifest.Config.Build
	}

	if cmd.Flags().Changed("target") {
		cfg.Target = lowerTarget
	}
	if cmd.Flags().Changed("stage") {
		cfg.Stage = lowerStage
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = lowerFormat
	}
	if cmd.Flags().Changed("debug-info") {
		cfg.DebugInfo = lowerDebugInfo
	}
	return driver.JobFromConfig(cfg)
}

// outputName derives the output file name from the input path: the input's
// base name with the stage-appropriate extension.
func outputName(input string, format driver.Format) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if format == driver.FormatBinary {
		return base + ".mobj"
	}
	return base + ".mir"
}
