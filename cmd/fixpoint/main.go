package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/fixpoint/pkg/fixpoint"
	"github.com/cognicore/fixpoint/pkg/fixpoint/config"
	"github.com/cognicore/fixpoint/pkg/fixpoint/programs"
	"github.com/cognicore/fixpoint/pkg/fixpoint/store"
	"github.com/cognicore/fixpoint/pkg/fixpoint/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	verbose   bool
	factsDB   string
	maxRounds int
	workers   int
	naive     bool

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "fixpoint",
		Short: "Evaluate Datalog rule programs bottom-up",
		Long: `fixpoint evaluates Horn-clause rule programs with stratified negation.

Programs are YAML files declaring predicates, facts, rules and queries.
Base facts may also come from the tables and views of a SQLite database.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if c.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log evaluation rounds")
	root.PersistentFlags().IntVar(&c.maxRounds, "max-rounds", 0, "Fail after this many rounds (0 = unlimited)")
	root.PersistentFlags().IntVar(&c.workers, "workers", 0, "Evaluate the rules of a round on this many workers")
	root.PersistentFlags().BoolVar(&c.naive, "naive", false, "Use naive instead of semi-naive evaluation")

	runCmd := &cobra.Command{
		Use:   "run PATTERN...",
		Short: "Run program files and print their query answers",
		Long: `Loads every program matching the given files, directories or globs
(** is supported), solves each on a fresh session and prints the answers.

Example:
  fixpoint run testdata/programs
  fixpoint run --facts-db family.db 'programs/**/*.yaml'`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.runPrograms,
	}
	runCmd.Flags().StringVar(&c.factsDB, "facts-db", "", "SQLite database providing base facts")

	exerciseCmd := &cobra.Command{
		Use:       "exercise NAME|all",
		Short:     "Run a built-in exercise",
		Long:      "Runs one of the built-in exercises, or all of them.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(programs.Names(), "all"),
		RunE:      c.runExercise,
	}

	strataCmd := &cobra.Command{
		Use:   "strata PATTERN...",
		Short: "Print the stratification of program files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.printStrata,
	}

	root.AddCommand(runCmd, exerciseCmd, strataCmd)
	return root
}

func (c *cli) options(src store.FactSource) fixpoint.Options {
	return fixpoint.Options{
		Logger:    c.logger,
		Source:    src,
		Naive:     c.naive,
		MaxRounds: c.maxRounds,
		Workers:   c.workers,
	}
}

func (c *cli) runPrograms(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	loader := config.Loader{Patterns: args}
	progs, err := loader.Load()
	if err != nil {
		return err
	}

	var src store.FactSource
	if c.factsDB != "" {
		src, err = sqlite.OpenSQLite(ctx, c.factsDB)
		if err != nil {
			return fmt.Errorf("open facts database: %w", err)
		}
		defer src.Close()
	}

	out := cmd.OutOrStdout()
	for i, prog := range progs {
		rep, err := fixpoint.Run(ctx, prog, c.options(src))
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := rep.WriteText(out); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) runExercise(cmd *cobra.Command, args []string) error {
	names := []string{args[0]}
	if args[0] == "all" {
		names = programs.Names()
	}

	out := cmd.OutOrStdout()
	for i, name := range names {
		ex, err := programs.Lookup(name)
		if err != nil {
			return err
		}
		rep, err := fixpoint.RunExercise(cmd.Context(), ex, c.options(nil))
		if err != nil {
			return err
		}
		rep.Name = ex.Title
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := rep.WriteText(out); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) printStrata(cmd *cobra.Command, args []string) error {
	loader := config.Loader{Patterns: args}
	progs, err := loader.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, prog := range progs {
		rep, err := fixpoint.Run(cmd.Context(), prog, c.options(nil))
		if err != nil {
			return err
		}
		strata, err := rep.Session.Strata()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s:\n", rep.Name)
		for level, preds := range strata {
			fmt.Fprintf(out, "  %d: %v\n", level, preds)
		}
	}
	return nil
}
