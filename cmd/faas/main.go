package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jurf666/FaaSDocker/pkg/api"
	"github.com/Jurf666/FaaSDocker/pkg/config"
	"github.com/Jurf666/FaaSDocker/pkg/dispatcher"
	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/manager"
	"github.com/Jurf666/FaaSDocker/pkg/metrics"
	"github.com/Jurf666/FaaSDocker/pkg/perf"
	"github.com/Jurf666/FaaSDocker/pkg/runtime"
	"github.com/Jurf666/FaaSDocker/pkg/storage"
	"github.com/Jurf666/FaaSDocker/pkg/workflow"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "faas",
	Short: "FaaS controller - pre-warmed container pools with perf-counter capture",
	Long: `A function-as-a-service controller on top of Docker: it keeps pools of
pre-warmed worker containers per function, dispatches invocations through an
init/run contract while sampling hardware performance counters, and drives
multi-stage workflows (video, recognizer, svd, wordcount) across functions.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"faas version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		// Flags override the file
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}
		if dockerHost, _ := cmd.Flags().GetString("docker-host"); dockerHost != "" {
			cfg.DockerHost = dockerHost
		}
		if perfDir, _ := cmd.Flags().GetString("perf-log-dir"); perfDir != "" {
			cfg.PerfLogDir = perfDir
		}
		if cmd.Flags().Changed("perf") {
			cfg.Perf.Enabled, _ = cmd.Flags().GetBool("perf")
		}

		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file")
	serveCmd.Flags().String("listen", "", "HTTP listen address (default :5000)")
	serveCmd.Flags().String("docker-host", "", "Docker daemon address (default from environment)")
	serveCmd.Flags().String("perf-log-dir", "", "Directory for perf reports and clean-metric records")
	serveCmd.Flags().Bool("perf", true, "Sample performance counters on dispatch")
}

func serve(cfg *config.Config) error {
	metrics.SetVersion(Version)
	log.Info(fmt.Sprintf("faas controller %s starting", Version))

	driver, err := runtime.NewDockerDriver(cfg.DockerHost)
	if err != nil {
		metrics.RegisterComponent("docker", false, err.Error())
		return fmt.Errorf("docker driver: %w", err)
	}
	defer driver.Close()
	metrics.RegisterComponent("docker", true, "connected")

	store, err := storage.NewBoltStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("invocation store: %w", err)
	}
	defer store.Close()
	metrics.RegisterComponent("store", true, cfg.StorePath)

	if err := os.MkdirAll(cfg.PerfLogDir, 0o755); err != nil {
		return fmt.Errorf("perf log dir: %w", err)
	}

	registry := manager.NewRegistry(driver)
	disp := dispatcher.New(registry, driver, perf.NewPerfSampler(), store, cfg)
	orch := workflow.New(disp)
	server := api.New(registry, disp, orch, store, cfg)

	// A signal drains the HTTP server; pool teardown follows once Start
	// returns, so no dispatch races container removal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sig := <-sigCh
		log.Info(fmt.Sprintf("received %s, shutting down", sig))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			log.Errorf("http shutdown", err)
		}
	}()

	err = server.Start()
	if err == nil {
		// Start returns as soon as Shutdown begins; wait for the drain
		<-shutdownDone
	}

	registry.StopAll()

	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("faas controller stopped")
	return nil
}
