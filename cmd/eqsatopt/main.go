// Command eqsatopt is the CLI front-end over package driver: it parses an
// input netlist, loads rule files, runs one of the three top-level flows,
// and writes the optimized netlist back out.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/panther03/eqsatopt-go/driver"
	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/eqerr"
	"github.com/panther03/eqsatopt-go/netlist"
	"github.com/panther03/eqsatopt-go/rewriter"
)

// envDefaults binds the `EQSATOPT_*` environment variables, which provide
// defaults for each numeric limit, via caarlos0/env's struct-tag driven
// parsing.
type envDefaults struct {
	IterLimit    int           `env:"EQSATOPT_EGG_ITER_LIMIT" envDefault:"1000"`
	NodeLimit    int           `env:"EQSATOPT_EGG_NODE_LIMIT" envDefault:"1000000"`
	TimeLimit    time.Duration `env:"EQSATOPT_EGG_TIME_LIMIT" envDefault:"1h"`
	ILPTimeLimit time.Duration `env:"EQSATOPT_ILP_TIME_LIMIT" envDefault:"30s"`
}

// flags collects the CLI options shared by every subcommand.
type flags struct {
	rules           []string
	eggTimeLimit    float64
	eggIterLimit    int
	eggNodeLimit    int
	ilpTimeLimit    float64
	noCommMatching  bool
	strictDeadlines bool
	trace           string
	ilpIters        int
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	var envCfg envDefaults
	if err := env.Parse(&envCfg); err != nil {
		logger.Error().Err(err).Msg("failed to parse EQSATOPT_ environment defaults")
		return 2
	}

	f := &flags{}
	root := &cobra.Command{
		Use:           "eqsatopt",
		Short:         "equality-saturation HE-aware netlist optimizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringArrayVar(&f.rules, "rules", nil, "rule file (repeatable)")
	root.PersistentFlags().Float64Var(&f.eggTimeLimit, "egg-time-limit", envCfg.TimeLimit.Seconds(), "saturation wall-time budget, seconds")
	root.PersistentFlags().IntVar(&f.eggIterLimit, "egg-iter-limit", envCfg.IterLimit, "saturation iteration cap")
	root.PersistentFlags().IntVar(&f.eggNodeLimit, "egg-node-limit", envCfg.NodeLimit, "saturation e-node cap")
	root.PersistentFlags().Float64Var(&f.ilpTimeLimit, "ilp-time-limit", envCfg.ILPTimeLimit.Seconds(), "ILP solver wall-time budget, seconds")
	root.PersistentFlags().BoolVar(&f.noCommMatching, "no-comm-matching", false, "disable commutativity-modulo pattern matching")
	root.PersistentFlags().BoolVar(&f.strictDeadlines, "strict-deadlines", false, "check the deadline between match and apply phases too")
	root.PersistentFlags().StringVar(&f.trace, "trace", "", "write an e-graph snapshot trace to FILE")

	exitCode := 0
	runFlow := func(name string, fn flowFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			code, err := execFlow(cmd.Context(), logger, f, args, fn)
			exitCode = code
			return err
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "sat-mc-ilp INPUT OUTPUT",
		Short: "saturate, then report the better of bounded-greedy and unbounded ILP extraction",
		Args:  cobra.ExactArgs(2),
		RunE: runFlow("sat-mc-ilp", func(ctx context.Context, g *egraph.EGraph, rules []rewriter.Rule, roots []egraph.ClassID, outs []string, lim driver.Limits, f *flags) (*driver.Result, error) {
			return driver.SatMcIlp(ctx, g, rules, roots, outs, lim)
		}),
	})
	root.AddCommand(&cobra.Command{
		Use:   "sat-mc-md-dag INPUT OUTPUT",
		Short: "saturate, then report the bounded greedy DAG extraction directly",
		Args:  cobra.ExactArgs(2),
		RunE: runFlow("sat-mc-md-dag", func(ctx context.Context, g *egraph.EGraph, rules []rewriter.Rule, roots []egraph.ClassID, outs []string, lim driver.Limits, f *flags) (*driver.Result, error) {
			return driver.SatMcMdDag(ctx, g, rules, roots, outs, lim)
		}),
	})
	tracingCmd := &cobra.Command{
		Use:   "tracing-he-converge INPUT OUTPUT",
		Short: "saturate, then iterate ILP with progressively relaxed depth bounds",
		Args:  cobra.ExactArgs(2),
		RunE: runFlow("tracing-he-converge", func(ctx context.Context, g *egraph.EGraph, rules []rewriter.Rule, roots []egraph.ClassID, outs []string, lim driver.Limits, f *flags) (*driver.Result, error) {
			return driver.TracingHEConverge(ctx, g, rules, roots, outs, f.ilpIters, lim)
		}),
	}
	tracingCmd.Flags().IntVar(&f.ilpIters, "ilp-iters", 8, "number of progressively-relaxed ILP iterations")
	root.AddCommand(tracingCmd)

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("eqsatopt failed")
		if exitCode == 0 {
			exitCode = exitCodeFor(err)
		}
	}
	return exitCode
}

type flowFunc func(ctx context.Context, g *egraph.EGraph, rules []rewriter.Rule, roots []egraph.ClassID, outs []string, lim driver.Limits, f *flags) (*driver.Result, error)

// execFlow parses the input netlist and rule files, runs fn, and writes
// the output netlist, returning the process exit code alongside any
// error for cobra/zerolog to report.
func execFlow(ctx context.Context, logger zerolog.Logger, f *flags, args []string, fn flowFunc) (int, error) {
	inPath, outPath := args[0], args[1]

	n, err := parseNetlistFile(inPath)
	if err != nil {
		return 1, err
	}

	var rules []rewriter.Rule
	for _, rp := range f.rules {
		rf, err := os.Open(rp)
		if err != nil {
			return 1, fmt.Errorf("%w: opening rule file %q: %v", eqerr.ErrIO, rp, err)
		}
		loaded, err := rewriter.LoadRules(rf)
		rf.Close()
		if err != nil {
			return 1, err
		}
		rules = append(rules, loaded...)
	}

	root, err := n.ToTerm()
	if err != nil {
		return 1, err
	}
	g := egraph.New()
	rootClass := g.AddTerm(root)
	concatNode := g.Node(concatNodeID(g, rootClass))
	rootChildren := g.ChildrenOf(concatNode)

	lim := driver.DefaultLimits()
	lim.Logger = logger
	lim.IterLimit = f.eggIterLimit
	lim.NodeLimit = f.eggNodeLimit
	lim.TimeLimit = time.Duration(f.eggTimeLimit * float64(time.Second))
	lim.ILPTimeLimit = time.Duration(f.ilpTimeLimit * float64(time.Second))
	lim.Commutative = !f.noCommMatching
	lim.StrictDeadlines = f.strictDeadlines

	res, err := fn(ctx, g, rules, rootChildren, n.Outputs, lim, f)
	if f.trace != "" {
		b, terr := g.Serialize().Marshal()
		if terr == nil {
			terr = os.WriteFile(f.trace, b, 0o644)
		}
		if terr != nil {
			return 1, fmt.Errorf("%w: writing trace %q: %v", eqerr.ErrIO, f.trace, terr)
		}
	}
	if err != nil {
		if errors.Is(err, eqerr.ErrNoSolution) {
			// Extraction found nothing usable: fall back to re-emitting the
			// netlist exactly as parsed, rather than failing the run.
			logger.Warn().Msg("extraction found no solution; falling back to input netlist unchanged")
			if werr := writeNetlistFile(outPath, n); werr != nil {
				return 1, werr
			}
			return 3, nil
		}
		return exitCodeFor(err), err
	}

	if err := os.WriteFile(outPath, []byte(res.Netlist.Text), 0o644); err != nil {
		return 1, fmt.Errorf("%w: writing %q: %v", eqerr.ErrIO, outPath, err)
	}
	logger.Info().Int("md", res.MD).Int("mc", res.MC).Msg("wrote optimized netlist")
	return 0, nil
}

// concatNodeID returns the sole e-node id backing the root CONCAT class,
// used only to recover its children in original output order.
func concatNodeID(g *egraph.EGraph, root egraph.ClassID) egraph.NodeID {
	ids := g.NodeIDsOf(root)
	return ids[0]
}

// writeNetlistFile re-serializes a parsed Netlist verbatim, dispatching on
// outPath's extension the same way parseNetlistFile dispatches on input.
func writeNetlistFile(outPath string, n *netlist.Netlist) error {
	fh, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("%w: creating %q: %v", eqerr.ErrIO, outPath, err)
	}
	defer fh.Close()

	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".seqn":
		return netlist.WriteSeqn(n, fh)
	default:
		return netlist.WriteEqn(n, fh)
	}
}

func parseNetlistFile(path string) (*netlist.Netlist, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", eqerr.ErrIO, path, err)
	}
	defer fh.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".seqn":
		return netlist.ParseSeqn(fh)
	default:
		return netlist.ParseEqn(fh)
	}
}

// exitCodeFor maps an error to a process exit code: 1 for I/O or parse
// failures, 3 for resource exhaustion or no-solution, 2 for anything
// cobra itself rejects (bad flags/args).
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, eqerr.ErrIO), errors.Is(err, eqerr.ErrParse):
		return 1
	case errors.Is(err, eqerr.ErrResourceExhausted), errors.Is(err, eqerr.ErrNoSolution):
		return 3
	default:
		return 2
	}
}
