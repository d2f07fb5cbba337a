package service

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ktp-deploy/internal/config"
	"ktp-deploy/internal/model"
	"ktp-deploy/pkg/utils"
)

// Relative path, under an instance directory, where rendered configs land.
const instanceConfigDir = "serverfiles/dod/addons/ktpamx/configs"

// Options selects what one deployment invocation does.
type Options struct {
	Version        string
	Profile        string
	ArtifactsDir   string
	DryRun         bool
	DeployConfigs  bool
	ConfigureNames bool
	Notify         bool
	// Parallel bounds concurrent cluster workers. 1 means the sequential
	// reference behavior.
	Parallel int
}

// Orchestrator drives one invocation: clusters x instances x components.
// It owns the sessions it opens and the result it builds; nothing is retained
// across invocations. Failures are recorded and skipped, never retried --
// re-running is safe because every remote operation is overwrite-or-create.
type Orchestrator struct {
	cfg      *config.Config
	planner  *Planner
	backups  *BackupManager
	renderer *Renderer // nil when no templates are configured
	reporter *Reporter
	dial     Dialer
	logger   *zap.Logger
}

func NewOrchestrator(cfg *config.Config, planner *Planner, backups *BackupManager, renderer *Renderer, reporter *Reporter, dial Dialer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		planner:  planner,
		backups:  backups,
		renderer: renderer,
		reporter: reporter,
		dial:     dial,
		logger:   logger,
	}
}

// Run deploys the components to the clusters and returns the aggregate
// outcome. Every failure is converted into a recorded error at the point of
// the single operation that failed; a failing cluster never aborts the rest.
func (o *Orchestrator) Run(clusters, components []string, opts Options) *model.AggregateResult {
	result := model.NewAggregateResult(uuid.NewString())

	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}

	o.logger.Info("deployment started",
		zap.String("run_id", result.RunID),
		zap.String("version", opts.Version),
		zap.Strings("clusters", clusters),
		zap.Strings("components", components),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("parallel", parallel))

	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for _, name := range clusters {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			o.runCluster(name, components, opts, result)
		}(name)
	}
	wg.Wait()

	o.logger.Info("deployment finished",
		zap.String("run_id", result.RunID),
		zap.Bool("success", result.Success()),
		zap.Int("errors", len(result.Errors())))
	return result
}

func (o *Orchestrator) runCluster(name string, components []string, opts Options, result *model.AggregateResult) {
	cluster, ok := o.cfg.Clusters[name]
	if !ok {
		o.logger.Warn("unknown cluster requested", zap.String("cluster", name))
		o.reporter.Printf("Unknown cluster: %s\n", name)
		result.Record("Unknown cluster: " + name)
		return
	}

	o.reporter.ClusterHeader(cluster)

	if cluster.Host == "" {
		o.reporter.Printf("  Skipping %s: No host configured\n", name)
		result.Record(fmt.Sprintf("%s: no host configured", name))
		return
	}

	if opts.ConfigureNames {
		if err := o.configureServerNames(cluster, opts); err != nil {
			o.logger.Error("server name configuration failed",
				zap.String("cluster", name), zap.Error(err))
			result.Record(fmt.Sprintf("%s: failed to configure server names: %v", name, err))
		}
	}

	for _, component := range components {
		o.deployComponent(cluster, component, opts, result)
	}

	if opts.DeployConfigs {
		o.deployConfigs(cluster, opts, result)
	}
}

// deployComponent pushes every mapping of one component to every instance of
// the cluster. Per-file failures flip the outcome but processing continues to
// the next file and instance.
func (o *Orchestrator) deployComponent(cluster *model.Cluster, component string, opts Options, result *model.AggregateResult) {
	mappings := o.planner.Resolve(component)
	if len(mappings) == 0 {
		o.logger.Warn("no paths configured for component",
			zap.String("component", component), zap.String("cluster", cluster.Name))
		o.reporter.Printf("  No paths configured for component: %s\n", component)
		return
	}

	o.reporter.Printf("  Deploying %s to %s (%s)...\n", component, cluster.Name, cluster.Host)

	if opts.DryRun {
		for _, m := range mappings {
			o.reporter.Printf("    Would deploy: %s\n", path.Base(m.Source))
		}
		return
	}

	home := cluster.HomeDir()
	backupDir := home + "/backups/" + opts.Version

	for _, instance := range cluster.Instances() {
		sess, err := o.dial(cluster)
		if err != nil {
			result.Record(utils.NewConnectivityError(cluster.Name, err).Error())
			o.logger.Error("cluster unreachable",
				zap.String("cluster", cluster.Name), zap.Error(err))
			return
		}
		o.deployToInstance(sess, cluster, instance, mappings, backupDir, opts, result)
		sess.Close()
	}
}

func (o *Orchestrator) deployToInstance(sess Session, cluster *model.Cluster, instance model.ServerInstance, mappings []model.PathMapping, backupDir string, opts Options, result *model.AggregateResult) {
	home := cluster.HomeDir()

	for _, m := range mappings {
		source := filepath.Join(opts.ArtifactsDir, m.Source)
		if _, err := os.Stat(source); err != nil {
			o.logger.Warn("source artifact not found", zap.String("source", source))
			o.reporter.Printf("    Warning: Source not found: %s\n", source)
			continue
		}

		dest := home + "/" + instance.Dir() + "/" + m.Dest
		target := instance.Dir() + "/" + m.Dest

		if err := sess.EnsureDir(path.Dir(dest)); err != nil {
			result.Record(fmt.Sprintf("%s: %s", cluster.Name, utils.NewTransferError(target, err)))
			continue
		}

		// Backup before overwrite; advisory, never blocks the upload.
		o.backups.Backup(sess, dest, backupDir)

		if err := sess.Upload(source, dest); err != nil {
			o.reporter.Printf("    Error uploading %s to %s: %v\n", path.Base(source), instance.Dir(), err)
			result.Record(fmt.Sprintf("%s: %s", cluster.Name, utils.NewTransferError(target, err)))
			continue
		}
		o.reporter.Printf("    %s: %s -> %s\n", instance.Dir(), path.Base(source), m.Dest)

		if m.Chmod != "" {
			if err := sess.Chmod(dest, m.Chmod); err != nil {
				result.Record(fmt.Sprintf("%s: chmod %s: %v", cluster.Name, target, err))
			}
		}
	}
}

// configureServerNames patches or creates the LinuxGSM instance configs so
// each server advertises "<prefix> #<n>".
func (o *Orchestrator) configureServerNames(cluster *model.Cluster, opts Options) error {
	prefix := cluster.ServerNamePrefix
	if prefix == "" {
		prefix = "KTP " + model.Title(cluster.DisplayName())
	}

	o.reporter.Printf("  Configuring server names for %s...\n", cluster.Name)
	o.reporter.Printf("    Hostname: %s\n", cluster.DisplayName())
	o.reporter.Printf("    Server name prefix: %s\n", prefix)

	if opts.DryRun {
		for _, instance := range cluster.Instances() {
			o.reporter.Printf("    Would set %s: %s\n", instance.Dir(), instance.ServerName(prefix))
		}
		return nil
	}

	sess, err := o.dial(cluster)
	if err != nil {
		return err
	}
	defer sess.Close()

	home := cluster.HomeDir()
	for _, instance := range cluster.Instances() {
		serverName := instance.ServerName(prefix)
		configDir := home + "/" + instance.Dir() + "/lgsm/config-lgsm/dodserver"
		configFile := configDir + "/" + instance.ExecName() + ".cfg"

		if err := sess.EnsureDir(configDir); err != nil {
			return fmt.Errorf("create %s: %w", configDir, err)
		}

		exists, err := sess.FileExists(configFile)
		if err != nil {
			return err
		}

		if exists {
			line := fmt.Sprintf("servername=%q", serverName)
			if err := sess.PatchOrAppendLine(configFile, "servername", line); err != nil {
				return err
			}
		} else {
			content := lgsmInstanceConfig(cluster, instance, serverName)
			if err := sess.WriteFile(configFile, content); err != nil {
				return err
			}
		}

		o.reporter.Printf("    %s: %s\n", instance.Dir(), serverName)
	}

	return nil
}

func lgsmInstanceConfig(cluster *model.Cluster, instance model.ServerInstance, serverName string) string {
	return fmt.Sprintf(`# LinuxGSM Instance Configuration
# Instance %d - Port %d

port="%d"
clientport="%d"
servername=%q

# Cluster: %s
`, instance.Index, instance.Port, instance.Port, instance.ClientPort(), serverName, cluster.DisplayName())
}

// deployConfigs renders every template for every instance. Per-template
// failures are recorded and the remaining templates still render.
func (o *Orchestrator) deployConfigs(cluster *model.Cluster, opts Options, result *model.AggregateResult) {
	if o.renderer == nil {
		o.logger.Info("no templates directory found, skipping config deployment")
		o.reporter.Printf("  No templates directory found, skipping config deployment\n")
		return
	}

	profile := o.cfg.Profiles[opts.Profile]
	o.reporter.Printf("  Deploying configs to %s with profile '%s'...\n", cluster.Name, opts.Profile)

	if opts.DryRun {
		o.reporter.Printf("    Would apply profile: %v\n", profile)
		return
	}

	sess, err := o.dial(cluster)
	if err != nil {
		result.Record(utils.NewConnectivityError(cluster.Name, err).Error())
		return
	}
	defer sess.Close()

	home := cluster.HomeDir()
	for _, instance := range cluster.Instances() {
		configDir := home + "/" + instance.Dir() + "/" + instanceConfigDir
		if err := sess.EnsureDir(configDir); err != nil {
			result.Record(fmt.Sprintf("%s: create config dir %s: %v", cluster.Name, instance.Dir(), err))
			continue
		}

		ctx := RenderContext{
			Profile:   profile,
			Cluster:   cluster,
			Instance:  instance,
			ServerDir: instance.Dir(),
		}

		for _, name := range o.renderer.Templates() {
			rendered, err := o.renderer.Render(name, ctx)
			if err != nil {
				result.Record(fmt.Sprintf("%s: %s", cluster.Name, utils.NewRenderError(name, err)))
				continue
			}

			destPath := configDir + "/" + DestName(name)
			if err := sess.WriteFile(destPath, rendered); err != nil {
				result.Record(fmt.Sprintf("%s: write %s: %v", cluster.Name, DestName(name), err))
				continue
			}
			o.reporter.Printf("    %s: %s\n", instance.Dir(), DestName(name))
		}
	}
}
