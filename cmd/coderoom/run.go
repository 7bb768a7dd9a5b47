package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/coderoom/internal/config"
	"github.com/michaelbrown/coderoom/internal/runner"
)

var languageFlag string

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Execute a source file through the sandbox",
	Long: `Run a local source file under the same sandbox the server uses:
isolated workspace, hard timeout, output cap.

The language is inferred from the file extension unless --language is given.

Examples:
  coderoom run script.py
  coderoom run snippet.txt --language javascript`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&languageFlag, "language", "", "Language identifier (overrides extension)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	lang := languageFromArgs(args[0], languageFlag)

	run := runner.New(runner.Policy{
		Timeout:   cfg.Exec.Timeout,
		MaxOutput: cfg.Exec.MaxOutputBytes,
		TempRoot:  cfg.Exec.TempDir,
	})
	if cfg.Exec.ToolchainsFile != "" {
		tc, err := runner.LoadToolchains(cfg.Exec.ToolchainsFile)
		if err != nil {
			return fmt.Errorf("loading toolchains: %w", err)
		}
		run.SetToolchains(tc)
	}

	result := run.Execute(context.Background(), string(source), lang)

	fmt.Print(result.StandardOutput)
	if result.StandardError != "" {
		fmt.Fprintln(os.Stderr, result.StandardError)
	}
	if !result.Succeeded {
		os.Exit(1)
	}
	return nil
}

// languageFromArgs resolves the language from the flag, or from the file
// extension when no flag is given. Unknown values fall back to javascript.
func languageFromArgs(path, flag string) runner.Language {
	if flag != "" {
		return runner.ParseLanguage(flag)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	for _, l := range runner.Languages {
		if l.Ext() == ext {
			return l
		}
	}
	return runner.ParseLanguage(ext)
}
