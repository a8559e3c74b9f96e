// Command simsweep runs a batch experiment sweep over the external agent
// trust/reputation simulator: it builds the configuration grid, launches
// one simulation per cell, records outcomes, and hands the completed
// artifact tree to the external analyser.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/iot-trust/simsweep/internal/analysis"
	"github.com/iot-trust/simsweep/internal/config"
	"github.com/iot-trust/simsweep/internal/monitoring"
	"github.com/iot-trust/simsweep/internal/simproc"
	"github.com/iot-trust/simsweep/internal/store"
	"github.com/iot-trust/simsweep/internal/sweep"
	"github.com/iot-trust/simsweep/internal/timeutil"
)

func main() {
	if err := run(); err != nil {
		monitoring.Logf("[simsweep] error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	simulator := flag.String("simulator", "", "Path to the external simulator entry script")
	analyser := flag.String("analyser", "", "Path to the external analysis entry script (empty disables aggregation)")
	python := flag.String("python", "python3", "Interpreter used for the simulator and analyser")
	resultsRoot := flag.String("results-root", "results", "Directory the artifact tree is written under")

	behaviours := flag.String("behaviours", strings.Join(sweep.Behaviours(), ","), "Comma-separated capability behaviours to sweep")
	evictions := flag.String("eviction", strings.Join(sweep.EvictionStrategies(), ","), "Comma-separated eviction strategies to sweep")
	agentChoose := flag.String("agent-choose", strings.Join(sweep.AgentChooseBehaviours(), ","), "Comma-separated agent-choose strategies to sweep")
	utilityTargets := flag.String("utility-targets", "Good", "Comma-separated utility targets to sweep")
	regimes := flag.String("regimes", strings.Join(sweep.RegimeLabels(), ","), "Comma-separated buffer regimes to sweep")
	seeds := flag.String("seeds", "", "Seeds: comma-separated values or min:max:step (default one random seed)")

	goodAgents := flag.Int("good-agents", 8, "Number of agents on AlwaysGoodBehaviour in every cell")
	badAgents := flag.Int("bad-agents", 2, "Number of agents bound to the cell's behaviour")

	numCapabilities := flag.Int("num-capabilities", 2, "Capabilities per agent")
	duration := flag.Float64("duration", 300, "Simulated duration in seconds")
	maxStartDelay := flag.Float64("max-start-delay", 1, "Maximum random agent start delay")
	trustDissemPeriod := flag.Float64("trust-dissem-period", 5, "Trust dissemination period")
	taskPeriod := flag.Float64("task-period", 2.5, "Task submission period")
	crPeriod := flag.Float64("challenge-response-period", 10, "Challenge-response period")
	crExecTime := flag.Float64("challenge-execution-time", 1, "Challenge execution time")
	seqFails := flag.Int("sequential-fails-threshold", 3, "Sequential failures before an agent is distrusted")
	simLogLevel := flag.Int("log-level", 0, "Simulator log level (0 or 1)")

	configPath := flag.String("config", "", "Optional JSON config file; explicit flags override it")
	existing := flag.String("existing", string(sweep.PolicyOverwrite), "Pre-existing artifact policy: overwrite, skip or fail")
	parallel := flag.Int("parallel", 1, "Number of cells to run concurrently")
	dbPath := flag.String("db", "", "Optional run-history SQLite database")
	migrationsDir := flag.String("migrations", "db/migrations", "Migrations directory for the run-history database")
	dryRun := flag.Bool("dry-run", false, "Print the grid without launching anything")
	listSweeps := flag.Bool("list", false, "List recorded sweeps from the run-history database and exit")
	showSweep := flag.String("show", "", "Print the recorded results of one sweep ID and exit")
	flag.Parse()

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	var fileCfg *config.SweepConfig
	if *configPath != "" {
		var err error
		fileCfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
		// File values apply only where no explicit flag was given.
		applyString(setFlags, "simulator", simulator, fileCfg.Simulator)
		applyString(setFlags, "analyser", analyser, fileCfg.Analyser)
		applyString(setFlags, "python", python, fileCfg.Python)
		applyString(setFlags, "results-root", resultsRoot, fileCfg.ResultsRoot)
		applyString(setFlags, "db", dbPath, fileCfg.Database)
		applyCSV(setFlags, "behaviours", behaviours, fileCfg.Behaviours)
		applyCSV(setFlags, "eviction", evictions, fileCfg.EvictionStrategies)
		applyCSV(setFlags, "agent-choose", agentChoose, fileCfg.AgentChoose)
		applyCSV(setFlags, "utility-targets", utilityTargets, fileCfg.UtilityTargets)
		applyCSV(setFlags, "regimes", regimes, fileCfg.Regimes)
		applyString(setFlags, "seeds", seeds, fileCfg.Seeds)
		applyInt(setFlags, "good-agents", goodAgents, fileCfg.GoodAgents)
		applyInt(setFlags, "bad-agents", badAgents, fileCfg.BadAgents)
		applyInt(setFlags, "num-capabilities", numCapabilities, fileCfg.NumCapabilities)
		applyFloat(setFlags, "duration", duration, fileCfg.Duration)
		applyFloat(setFlags, "max-start-delay", maxStartDelay, fileCfg.MaxStartDelay)
		applyFloat(setFlags, "trust-dissem-period", trustDissemPeriod, fileCfg.TrustDissemPeriod)
		applyFloat(setFlags, "task-period", taskPeriod, fileCfg.TaskPeriod)
		applyFloat(setFlags, "challenge-response-period", crPeriod, fileCfg.ChallengeResponsePeriod)
		applyFloat(setFlags, "challenge-execution-time", crExecTime, fileCfg.ChallengeExecutionTime)
		applyInt(setFlags, "sequential-fails-threshold", seqFails, fileCfg.SequentialFailsThreshold)
		applyInt(setFlags, "log-level", simLogLevel, fileCfg.SimLogLevel)
		applyString(setFlags, "existing", existing, fileCfg.Existing)
		applyInt(setFlags, "parallel", parallel, fileCfg.Parallel)
	}

	if *listSweeps || *showSweep != "" {
		if *dbPath == "" {
			return errors.New("-list and -show need -db")
		}
		history, err := store.Open(*dbPath)
		if err != nil {
			return err
		}
		defer history.Close()
		if err := history.MigrateUp(*migrationsDir); err != nil {
			return err
		}
		if version, dirty, err := history.MigrateVersion(*migrationsDir); err == nil {
			monitoring.Logf("[simsweep] run history schema version %d (dirty=%v)", version, dirty)
		}
		if *listSweeps {
			return printSweeps(os.Stdout, history)
		}
		return printSweepResults(os.Stdout, history, *showSweep)
	}

	policy := sweep.ExistingPolicy(*existing)
	switch policy {
	case sweep.PolicyOverwrite, sweep.PolicySkip, sweep.PolicyFail:
	default:
		return fmt.Errorf("-existing must be one of overwrite, skip, fail; got %q", *existing)
	}

	if *simulator == "" && !*dryRun {
		return errors.New("-simulator is required")
	}

	seedList, err := resolveSeeds(*seeds)
	if err != nil {
		return err
	}

	fixed := sweep.FixedParams{
		GoodAgents:               *goodAgents,
		BadAgents:                *badAgents,
		NumCapabilities:          *numCapabilities,
		Duration:                 *duration,
		MaxStartDelay:            *maxStartDelay,
		TrustDissemPeriod:        *trustDissemPeriod,
		TaskPeriod:               *taskPeriod,
		ChallengeResponsePeriod:  *crPeriod,
		ChallengeExecutionTime:   *crExecTime,
		SequentialFailsThreshold: *seqFails,
		LogLevel:                 *simLogLevel,
	}

	regimeLabels := sweep.ParseCSVStrings(*regimes)
	if len(regimeLabels) == 0 {
		regimeLabels = []string{"complete"}
	}
	regimeSizes := sweep.DefaultRegimes(fixed.GoodAgents+fixed.BadAgents, fixed.NumCapabilities)
	if fileCfg != nil {
		for label, b := range fileCfg.RegimeSizes {
			regimeSizes[label] = b
		}
	}

	grid, err := buildGrid(gridSpec{
		behaviours:     sweep.ParseCSVStrings(*behaviours),
		evictions:      sweep.ParseCSVStrings(*evictions),
		agentChoose:    sweep.ParseCSVStrings(*agentChoose),
		utilityTargets: sweep.ParseCSVStrings(*utilityTargets),
		regimes:        regimeLabels,
		seeds:          seedList,
		fixed:          fixed,
		regimeSizes:    regimeSizes,
	})
	if err != nil {
		return err
	}

	monitoring.Logf("[simsweep] grid: %d cells under %s", len(grid.Cells), *resultsRoot)

	if *dryRun {
		for i, c := range grid.Cells {
			fmt.Printf("%4d  %s  ->  %s\n", i+1, c.String(), c.ArtifactPrefix())
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := simproc.NewDriver(*python, *simulator, nil, nil)
	runner := sweep.NewRunner(driver, nil, timeutil.RealClock{}, sweep.RunnerOptions{
		ResultsRoot: *resultsRoot,
		Existing:    policy,
		Parallel:    *parallel,
	})

	var history *store.Store
	if *dbPath != "" {
		history, err = store.Open(*dbPath)
		if err != nil {
			return err
		}
		defer history.Close()
		if err := history.MigrateUp(*migrationsDir); err != nil {
			return err
		}
	}

	manifest, runErr := runner.Run(ctx, grid)

	if history != nil {
		if manifest.SweepID != "" {
			if err := history.CreateSweep(manifest.SweepID, *resultsRoot, grid, manifest.StartedAt); err != nil {
				monitoring.Logf("[simsweep] run history: %v", err)
			} else if err := history.FinishSweep(manifest); err != nil {
				monitoring.Logf("[simsweep] run history: %v", err)
			}
		}
	}

	if err := writeManifestCSV(*resultsRoot, grid, manifest); err != nil {
		monitoring.Logf("[simsweep] summary output: %v", err)
	}

	if runErr != nil {
		return runErr
	}

	if *analyser != "" {
		invoker := analysis.NewInvoker(*python, *analyser, *resultsRoot, nil)
		if err := invoker.Aggregate(ctx, manifest); err != nil {
			return err
		}
	}

	if manifest.Failed() > 0 {
		monitoring.Logf("[simsweep] completed with %d failed cells; their identifiers were excluded from aggregation", manifest.Failed())
	}
	return nil
}

type gridSpec struct {
	behaviours     []string
	evictions      []string
	agentChoose    []string
	utilityTargets []string
	regimes        []string
	seeds          []int64
	fixed          sweep.FixedParams
	regimeSizes    map[string]sweep.BufferSizes
}

// buildGrid declares behaviour and eviction unconditionally and the other
// axes only when they actually vary, which keeps artifact prefixes short
// for simple sweeps. Seeds are always a dimension so the simulator's
// metrics filenames stay distinct across repeats.
func buildGrid(spec gridSpec) (*sweep.Grid, error) {
	reg := sweep.NewRegistry()
	if err := reg.Declare(sweep.DimBehaviour, spec.behaviours...); err != nil {
		return nil, err
	}
	if err := reg.Declare(sweep.DimEviction, spec.evictions...); err != nil {
		return nil, err
	}
	if len(spec.agentChoose) > 1 {
		if err := reg.Declare(sweep.DimAgentChoose, spec.agentChoose...); err != nil {
			return nil, err
		}
	}
	if len(spec.utilityTargets) > 1 {
		if err := reg.Declare(sweep.DimUtilityTargets, spec.utilityTargets...); err != nil {
			return nil, err
		}
	}

	sizes := spec.regimeSizes
	if len(spec.regimes) > 1 {
		if err := reg.Declare(sweep.DimRegime, spec.regimes...); err != nil {
			return nil, err
		}
	} else {
		label := spec.regimes[0]
		bundle, ok := sizes[label]
		if !ok {
			return nil, &sweep.ConfigurationError{Field: sweep.DimRegime, Reason: fmt.Sprintf("unknown regime %q", label)}
		}
		sizes = map[string]sweep.BufferSizes{label: bundle}
	}

	if err := reg.Declare(sweep.DimSeed, sweep.SeedValues(spec.seeds)...); err != nil {
		return nil, err
	}

	// Single-valued axes not declared above still reach the simulator:
	// the argument builder falls back to agent-choose/utility-target
	// defaults, and the regime bundle is resolved here.
	if len(spec.agentChoose) == 1 {
		if !sweep.ValidLabel(sweep.DimAgentChoose, spec.agentChoose[0]) {
			return nil, &sweep.ConfigurationError{Field: sweep.DimAgentChoose, Reason: fmt.Sprintf("unknown label %q", spec.agentChoose[0])}
		}
	}
	if len(spec.utilityTargets) == 1 {
		if !sweep.ValidLabel(sweep.DimUtilityTargets, spec.utilityTargets[0]) {
			return nil, &sweep.ConfigurationError{Field: sweep.DimUtilityTargets, Reason: fmt.Sprintf("unknown label %q", spec.utilityTargets[0])}
		}
	}

	return sweep.BuildGrid(reg, spec.fixed, sizes)
}

// resolveSeeds parses the seed spec, generating one random seed when the
// operator gave none.
func resolveSeeds(spec string) ([]int64, error) {
	if spec != "" {
		return sweep.ParseSeedSpec(spec)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt32))
	if err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	return []int64{n.Int64()}, nil
}

func printSweeps(w io.Writer, history *store.Store) error {
	records, err := history.ListSweeps(0)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "no recorded sweeps")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-9s  %-20s  %s\n", "SWEEP", "STATUS", "STARTED", "RESULTS ROOT")
	for _, rec := range records {
		fmt.Fprintf(w, "%-36s  %-9s  %-20s  %s\n",
			rec.SweepID, rec.Status, rec.StartedAt.Format(time.RFC3339), rec.ResultsRoot)
	}
	return nil
}

func printSweepResults(w io.Writer, history *store.Store, sweepID string) error {
	rec, err := history.GetSweep(sweepID)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no recorded sweep %q", sweepID)
	}
	results, err := history.Results(sweepID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "sweep %s (%s), started %s, %d cells recorded\n",
		rec.SweepID, rec.Status, rec.StartedAt.Format(time.RFC3339), len(results))
	for _, res := range results {
		fmt.Fprintf(w, "%-13s  exit %-3d  %6.1fs  %s", res.Status, res.ExitCode, res.DurationSeconds, res.ArtifactPrefix)
		if res.Message != "" {
			fmt.Fprintf(w, "  (%s)", res.Message)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeManifestCSV(resultsRoot string, grid *sweep.Grid, m sweep.Manifest) error {
	cellsFile, err := os.Create(filepath.Join(resultsRoot, "sweep-cells.csv"))
	if err != nil {
		return err
	}
	defer cellsFile.Close()

	summaryFile, err := os.Create(filepath.Join(resultsRoot, "sweep-summary.csv"))
	if err != nil {
		return err
	}
	defer summaryFile.Close()

	dims := make([]string, 0, 6)
	for _, d := range grid.Registry.All() {
		dims = append(dims, d.Name)
	}
	sweep.NewCSVWriter(cellsFile, summaryFile).WriteManifest(dims, m)
	return nil
}

func applyString(set map[string]bool, name string, dst *string, v *string) {
	if !set[name] && v != nil {
		*dst = *v
	}
}

func applyInt(set map[string]bool, name string, dst *int, v *int) {
	if !set[name] && v != nil {
		*dst = *v
	}
}

func applyFloat(set map[string]bool, name string, dst *float64, v *float64) {
	if !set[name] && v != nil {
		*dst = *v
	}
}

func applyCSV(set map[string]bool, name string, dst *string, vals []string) {
	if !set[name] && len(vals) > 0 {
		*dst = strings.Join(vals, ",")
	}
}
