// Command mpcsim runs a rolling-horizon pump-scheduling simulation
// against a historical tunnel-level series and writes the step-by-step
// dispatch ledger to CSV. Grounded on the teacher's cmd/cli, which
// drives a backtest.Engine over a loaded interval series the same way.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alexha11/tunnel-mpc/internal/advisor"
	"github.com/alexha11/tunnel-mpc/internal/comparator"
	"github.com/alexha11/tunnel-mpc/internal/config"
	"github.com/alexha11/tunnel-mpc/internal/datasource"
	"github.com/alexha11/tunnel-mpc/internal/fallback"
	"github.com/alexha11/tunnel-mpc/internal/logging"
	"github.com/alexha11/tunnel-mpc/internal/model"
	"github.com/alexha11/tunnel-mpc/internal/quality"
	"github.com/alexha11/tunnel-mpc/internal/rolling"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  mpcsim run --config config.yaml --steps 96 --out results/ledger.csv")
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	steps := fs.Int("steps", 96, "Number of rolling steps to simulate")
	outPath := fs.String("out", "results/ledger.csv", "Output CSV path")
	verbose := fs.Bool("verbose", false, "Enable development-mode structured logging")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	log, err := logging.New(*verbose)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	pumps := make([]model.PumpSpec, len(cfg.Pumps))
	for i, p := range cfg.Pumps {
		pumps[i] = p.ToModel()
	}
	base := cfg.Constraints.ToModel()

	source, err := datasource.LoadJSONSource(cfg.DataSource.Path, pumps)
	if err != nil {
		panic(err)
	}

	var strategicAdvisor *advisor.Adapter
	if cfg.Advisor.Enabled {
		strategicAdvisor = advisor.NewAdapter(nil, time.Duration(cfg.Advisor.TimeoutSeconds)*time.Second, log)
	}

	tracker := quality.NewTracker(cfg.Quality.WindowSize)

	timeouts := fallback.DefaultTimeouts
	if cfg.Solver.FullTimeoutSeconds > 0 {
		timeouts.Full = time.Duration(cfg.Solver.FullTimeoutSeconds) * time.Second
	}
	if cfg.Solver.SimplifiedTimeoutSeconds > 0 {
		timeouts.Simplified = time.Duration(cfg.Solver.SimplifiedTimeoutSeconds) * time.Second
	}

	horizonSteps := 8
	driver := rolling.NewDriver(pumps, base, horizonSteps, source, strategicAdvisor, tracker, timeouts, log)
	driver.Baseline = source

	ctx := context.Background()
	t, err := source.FirstTimestamp()
	if err != nil {
		panic(err)
	}

	done := make(chan struct{})
	defer close(done)
	stream := driver.Run(ctx, t, *steps, done)

	records := make([]model.SimulationRecord, 0, *steps)
	for rec := range stream {
		records = append(records, rec)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		panic(err)
	}
	if err := writeRecordsCSV(*outPath, records); err != nil {
		panic(err)
	}
	fmt.Printf("Wrote %d steps to %s\n", len(records), *outPath)

	baseline := driver.BaselineRecords()
	if len(baseline) > 0 {
		report := comparator.Compare(records, baseline)
		for _, m := range report.Metrics {
			fmt.Printf("%-30s optimized=%.3f baseline=%.3f delta=%.1f%%\n", m.Name, m.Optimized, m.Baseline, m.DeltaPct)
		}
	}
}
