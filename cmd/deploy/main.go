package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jawher/mow.cli"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ktp-deploy/internal/config"
	"ktp-deploy/internal/pkg/logger"
	"ktp-deploy/internal/service"
	"ktp-deploy/pkg/utils"
)

var allComponents = []string{"engine", "ktpamx", "plugins"}

var profiles = map[string]bool{"online": true, "lan": true}

func main() {
	app := cli.App("ktp-deploy", "Deploy KTP game server components to remote clusters")

	app.Spec = "(--cluster | --all) --version [--component] [--profile] [--with-configs]" +
		" [--configure-names] [--notify-discord] [--dry-run] [--parallel] [--config] [--artifacts-dir]"

	var (
		cluster        = app.StringOpt("cluster", "", "Deploy to a specific cluster")
		all            = app.BoolOpt("all", false, "Deploy to all production clusters")
		component      = app.StringOpt("component", "all", "Component to deploy (engine, ktpamx, plugins, all)")
		version        = app.StringOpt("version", "", "Artifact version to deploy (e.g. 20260127)")
		profile        = app.StringOpt("profile", "online", "Configuration profile (online, lan)")
		withConfigs    = app.BoolOpt("with-configs", false, "Also deploy configuration files")
		configureNames = app.BoolOpt("configure-names", false, "Configure LinuxGSM server names")
		notify         = app.BoolOpt("notify-discord", false, "Send Discord notification on completion")
		dryRun         = app.BoolOpt("dry-run", false, "Show what would be deployed without making changes")
		parallel       = app.IntOpt("parallel", 1, "Max clusters deployed concurrently")
		configPath     = app.StringOpt("config", "config.yaml", "Path to config.yaml")
		artifactsDir   = app.StringOpt("artifacts-dir", "", "Override artifacts directory")
	)

	app.Action = func() {
		// .env first so config.Load sees the overrides.
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "No .env file loaded, using environment as-is")
		}

		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			cli.Exit(1)
		}

		log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
		defer log.Sync()
		zap.ReplaceGlobals(log)

		if err := utils.ValidateVersion(*version); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			cli.Exit(1)
		}
		if !profiles[*profile] {
			fmt.Fprintf(os.Stderr, "Error: unknown profile: %s\n", *profile)
			cli.Exit(1)
		}

		components, err := resolveComponents(*component)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			cli.Exit(1)
		}

		artifacts := *artifactsDir
		if artifacts == "" {
			artifacts = filepath.Join("artifacts", *version)
		}
		if _, err := os.Stat(artifacts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Artifacts directory not found: %s\n", artifacts)
			fmt.Fprintf(os.Stderr, "Run 'make build VERSION=%s' first.\n", *version)
			cli.Exit(1)
		}

		var clusters []string
		if *all {
			clusters = cfg.ProductionClusters()
			sort.Strings(clusters)
		} else {
			clusters = []string{*cluster}
		}

		renderer, err := service.NewRenderer(filepath.Join(filepath.Dir(*configPath), "templates"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			cli.Exit(1)
		}

		opts := service.Options{
			Version:        *version,
			Profile:        *profile,
			ArtifactsDir:   artifacts,
			DryRun:         *dryRun,
			DeployConfigs:  *withConfigs,
			ConfigureNames: *configureNames,
			Notify:         *notify,
			Parallel:       *parallel,
		}

		reporter := service.NewReporter(cfg, log)
		orchestrator := service.NewOrchestrator(
			cfg,
			service.NewPlanner(cfg.Paths),
			service.NewBackupManager(log),
			renderer,
			reporter,
			service.SSHDialer(cfg.SSH),
			log,
		)

		reporter.Banner(*version, artifacts, clusters, components, opts)
		result := orchestrator.Run(clusters, components, opts)
		reporter.Summary(result)

		if *notify && !*dryRun {
			reporter.Notify(result, clusters, components, *version)
		}

		if !result.Success() {
			cli.Exit(1)
		}
	}

	app.Run(os.Args)
}

func resolveComponents(name string) ([]string, error) {
	if name == "all" {
		return allComponents, nil
	}
	for _, known := range allComponents {
		if name == known {
			return []string{name}, nil
		}
	}
	return nil, fmt.Errorf("unknown component: %s", name)
}
