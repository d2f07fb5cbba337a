package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"ktp-deploy/internal/config"
	"ktp-deploy/internal/model"
)

const (
	colorGreen = 0x00FF00
	colorRed   = 0xFF0000

	maxNotifiedErrors = 5
)

// NotifyOutcome reports whether the advisory notification went out. Like
// backups, notification failures are logged and never abort anything.
type NotifyOutcome struct {
	Sent bool
	Err  error
}

// Reporter streams progress text and forwards the final result to the
// Discord relay.
type Reporter struct {
	logger *zap.Logger
	out    io.Writer

	relayURL  string
	secret    string
	channelID string
	http      *retryablehttp.Client
}

func NewReporter(cfg *config.Config, logger *zap.Logger) *Reporter {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &Reporter{
		logger:    logger,
		out:       os.Stdout,
		relayURL:  cfg.DiscordRelayURL,
		secret:    cfg.DiscordRelaySecret,
		channelID: cfg.DiscordChannelID,
		http:      client,
	}
}

func (r *Reporter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}

// Banner prints the invocation header before any cluster work starts.
func (r *Reporter) Banner(version, artifactsDir string, clusters, components []string, opts Options) {
	bold := color.New(color.Bold)
	bold.Fprintf(r.out, "KTP Deployment - Version %s\n", version)
	r.Printf("Artifacts: %s\n", artifactsDir)
	r.Printf("Components: %s\n", strings.Join(components, ", "))
	r.Printf("Clusters: %s\n", strings.Join(clusters, ", "))
	r.Printf("Profile: %s\n", opts.Profile)
	if opts.ConfigureNames {
		r.Printf("Server name configuration: ENABLED\n")
	}
	if opts.Notify {
		r.Printf("Discord notifications: ENABLED\n")
	}
	if opts.DryRun {
		color.New(color.FgYellow).Fprintln(r.out, "DRY RUN - No changes will be made")
	}
	r.Printf("\n")
}

func (r *Reporter) ClusterHeader(cluster *model.Cluster) {
	sep := strings.Repeat("=", 50)
	r.Printf("\n%s\n", sep)
	r.Printf("Cluster: %s\n", cluster.Name)
	if cluster.Description != "" {
		r.Printf("  %s\n", cluster.Description)
	}
	r.Printf("%s\n", sep)
}

// Summary prints the final banner for the whole run.
func (r *Reporter) Summary(result *model.AggregateResult) {
	sep := strings.Repeat("=", 50)
	r.Printf("\n%s\n", sep)
	if result.Success() {
		color.New(color.FgGreen).Fprintln(r.out, "Deployment completed successfully!")
	} else {
		color.New(color.FgRed).Fprintln(r.out, "Deployment completed with errors.")
		for _, msg := range result.Errors() {
			r.Printf("  - %s\n", msg)
		}
	}
	r.Printf("%s\n", sep)
}

// Notify posts the structured result to the Discord relay. Network failures
// and non-200 responses are logged, never propagated as deployment failures.
func (r *Reporter) Notify(result *model.AggregateResult, clusters, components []string, version string) NotifyOutcome {
	if r.relayURL == "" || r.secret == "" || r.channelID == "" {
		r.Printf("  Discord notification skipped (not configured)\n")
		return NotifyOutcome{}
	}

	payload, err := json.Marshal(r.buildNotification(result, clusters, components, version))
	if err != nil {
		r.logger.Warn("discord notification failed", zap.Error(err))
		return NotifyOutcome{Err: err}
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, r.relayURL, bytes.NewReader(payload))
	if err != nil {
		r.logger.Warn("discord notification failed", zap.Error(err))
		return NotifyOutcome{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Warn("discord notification failed", zap.Error(err))
		r.Printf("  Discord notification failed: %v\n", err)
		return NotifyOutcome{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("relay returned HTTP %d", resp.StatusCode)
		r.logger.Warn("discord notification failed", zap.Error(err))
		r.Printf("  Discord notification failed: HTTP %d\n", resp.StatusCode)
		return NotifyOutcome{Err: err}
	}

	r.Printf("  Discord notification sent\n")
	return NotifyOutcome{Sent: true}
}

func (r *Reporter) buildNotification(result *model.AggregateResult, clusters, components []string, version string) *model.DiscordNotification {
	embed := model.DiscordEmbed{
		Color:       colorGreen,
		Title:       "Deployment Successful",
		Description: fmt.Sprintf("Version `%s` deployed successfully", version),
		Footer:      model.DiscordFooter{Text: "KTP Deploy"},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields: []model.DiscordField{
			{Name: "Clusters", Value: strings.Join(clusters, ", "), Inline: true},
			{Name: "Components", Value: strings.Join(components, ", "), Inline: true},
		},
	}

	if !result.Success() {
		embed.Color = colorRed
		embed.Title = "Deployment Failed"
		embed.Description = fmt.Sprintf("Version `%s` deployment had errors", version)

		errs := result.Errors()
		shown := errs
		if len(shown) > maxNotifiedErrors {
			shown = shown[:maxNotifiedErrors]
		}
		text := strings.Join(shown, "\n")
		if len(errs) > maxNotifiedErrors {
			text += fmt.Sprintf("\n... and %d more", len(errs)-maxNotifiedErrors)
		}
		embed.Fields = append(embed.Fields, model.DiscordField{
			Name:  "Errors",
			Value: "```" + text + "```",
		})
	}

	return &model.DiscordNotification{
		ChannelID: r.channelID,
		Secret:    r.secret,
		Embeds:    []model.DiscordEmbed{embed},
	}
}
