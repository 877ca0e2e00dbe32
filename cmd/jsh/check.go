package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/icyseptember2237/jshell"
)

var checkWorkers int

var checkCmd = &cobra.Command{
	Use:   "check file...",
	Short: "Compile scripts without running them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().IntVarP(&checkWorkers, "jobs", "j", 0, "number of files compiled in parallel (default GOMAXPROCS)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	results, err := jshell.CheckFiles(cmd.Context(), afero.NewOsFs(), cfg.Engine, args, checkWorkers)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Status == jshell.StatusSuccess {
			fmt.Fprintf(cmd.OutOrStdout(), "ok    %s\n", r.Path)
			continue
		}
		failed++
		fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %v\n", r.Path, r.Err)
	}
	if failed > 0 {
		return &ExitError{Code: exitCompileError, Err: fmt.Errorf("%d of %d files failed", failed, len(results))}
	}
	return nil
}
