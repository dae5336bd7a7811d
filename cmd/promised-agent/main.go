package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/grovestate/promised/pkg/log"
	"github.com/grovestate/promised/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "promised-agent",
	Short:   "promised-agent evaluates declarative policy bundles",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("promised-agent version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("config", "", "Path to the agent's YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(copyCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// startMetricsServer serves the /metrics endpoint on addr from a
// background goroutine and returns immediately; a listen error is
// logged, not returned. The caller decides whether to start it.
func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.WithComponent("metrics").Error().Err(err).Msg("metrics server exited")
		}
	}()
}
