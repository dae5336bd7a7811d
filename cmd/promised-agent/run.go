package main

import (
	"fmt"
	"os"
	"time"

	"github.com/grovestate/promised/pkg/collector"
	"github.com/grovestate/promised/pkg/config"
	"github.com/grovestate/promised/pkg/dispatch"
	"github.com/grovestate/promised/pkg/engine"
	"github.com/grovestate/promised/pkg/lock"
	"github.com/grovestate/promised/pkg/log"
	"github.com/grovestate/promised/pkg/report"
	"github.com/grovestate/promised/pkg/scope"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the agent's demonstration policy bundle once",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Bool("no-lock", false, "Evaluate every promise unconditionally, without the transaction lock database")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("run: create work dir: %w", err)
	}

	if cfg.Metrics.Enabled {
		startMetricsServer(cfg.Metrics.Addr)
	}

	scopes := scope.NewStore()
	if err := seedDemoScope(scopes); err != nil {
		return fmt.Errorf("run: seed demo scope: %w", err)
	}

	var locks *lock.Manager
	if noLock, _ := cmd.Flags().GetBool("no-lock"); !noLock {
		var err error
		locks, err = lock.Open(cfg.WorkDir)
		if err != nil {
			return fmt.Errorf("run: open lock database: %w", err)
		}
		defer locks.Close()
	}

	broker := report.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for ev := range sub {
			log.WithComponent("report").Info().
				Str("promiser", ev.Promiser).
				Str("result", ev.Result).
				Msg(ev.Message)
		}
	}()

	d := dispatch.NewDispatcher()
	d.Register("commands", dispatch.NewCommandsActuator())
	d.Register("reports", dispatch.NewReportsActuator(broker))

	coll := collector.New(scopes, locks, nil)
	coll.Start()
	defer coll.Stop()

	runner := engine.NewRunner(scopes, locks, d, cfg.Threads)

	start := time.Now()
	outcomes := runner.RunBundle(demoBundle())
	elapsed := time.Since(start)

	for _, o := range outcomes {
		fmt.Printf("%-10s %-12s %s\n", o.TypeName, o.Result, o.Promiser)
	}
	fmt.Printf("evaluated %d promise outcomes in %s\n", len(outcomes), elapsed)

	return nil
}
