package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"undag/pkg/config"
	"undag/pkg/gitrepo"
	"undag/pkg/interp"
)

var (
	traceFlag    bool
	maxStepsFlag int
	entryFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "undag <repository>",
	Short: "Run a git repository as an UnDAG program",
	Long: `undag treats a git repository's commit graph as a program: each
commit's message is one instruction, and the _start/_end tags mark where
execution begins and ends.

The repository argument is a path to a git repository (bare or with a
worktree). A repository may carry an undag.yml at its root to override
the entry tag, bound the step count, or enable a trace; without it the
run starts at _start, has no step bound, and writes no trace.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runUndag,
}

func init() {
	rootCmd.Flags().BoolVar(&traceFlag, "trace", false, "write a commit-by-commit trace to stderr")
	rootCmd.Flags().IntVar(&maxStepsFlag, "max-steps", -1, "override the step budget from undag.yml (0 = unbounded)")
	rootCmd.Flags().StringVar(&entryFlag, "entry", "", "override the entry tag from undag.yml")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		reportDiagnostic(err)
		return exitCode(err)
	}
	return 0
}

func runUndag(cmd *cobra.Command, args []string) error {
	repoPath := args[0]

	cfg, err := config.Load(repoPath)
	if err != nil {
		return err
	}
	if entryFlag != "" {
		cfg.Entry = entryFlag
	}
	if maxStepsFlag >= 0 {
		cfg.MaxSteps = maxStepsFlag
	}

	graph, err := gitrepo.Open(repoPath)
	if err != nil {
		return interp.NewLoadError(err)
	}

	eval := interp.NewEvaluator(cmd.InOrStdin(), cmd.OutOrStdout())

	driverCfg := interp.Config{MaxSteps: cfg.MaxSteps}
	if cfg.Trace || traceFlag {
		driverCfg.Trace = cmd.ErrOrStderr()
	}

	if cfg.Entry != "" {
		start, ok := graph.Tag(cfg.Entry)
		if !ok {
			return &interp.Error{Kind: interp.KindTagError, Message: fmt.Sprintf("entry: unknown tag %q", cfg.Entry)}
		}
		graph = graph.WithStart(start)
	}

	drv := interp.NewDriver(graph, eval, driverCfg)
	return drv.Run()
}

// reportDiagnostic prints the error kind and offending commit (spec §7's
// propagation policy) for interpreter errors (repository load failures
// included, as LoadError), and a plain message otherwise (undag.yml
// problems, cobra usage errors).
func reportDiagnostic(err error) {
	if ie, ok := err.(*interp.Error); ok {
		if ie.Commit != "" {
			fmt.Fprintf(os.Stderr, "undag: %s at commit %s %q: %s\n", ie.Kind, ie.Commit, ie.CommitMessage, ie.Message)
			return
		}
		fmt.Fprintf(os.Stderr, "undag: %s: %s\n", ie.Kind, ie.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "undag: %v\n", err)
}

func exitCode(err error) int {
	if _, ok := err.(*interp.Error); ok {
		return 1
	}
	return 2
}
