// Package cli implements the agent-recall CLI commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/agent-recall/internal/config"
	"github.com/rcliao/agent-recall/internal/logging"
	"github.com/rcliao/agent-recall/internal/memory"
	"github.com/rcliao/agent-recall/internal/metrics"
	"github.com/rcliao/agent-recall/internal/store"
)

var (
	homeFlag         string
	configFlag       string
	conversationFlag string
	metricsFileFlag  string
	formatFlag       string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "agent-recall",
	Short: "Tiered tag-based memory for conversational agents",
	Long:  "Record tagged conversation summaries and recall the ones relevant to the current turn. One SQLite snapshot per conversation.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "Data directory (default: $AGENT_RECALL_HOME or ~/.agent-recall)")
	RootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: <home>/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&conversationFlag, "conversation", "c", "default", "Conversation id")
	RootCmd.PersistentFlags().StringVar(&metricsFileFlag, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getHome() string {
	if homeFlag != "" {
		return homeFlag
	}
	if env := os.Getenv(config.EnvHome); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agent-recall")
}

func getConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.Path(getHome())
}

// app is what every command works with: one loaded conversation plus the
// ambient logger, metrics and registry.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	registry *memory.Registry
	id       string
	mem      *memory.Memory
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	met := metrics.New()
	reg := memory.NewRegistry(getHome(), store.NewSQLiteStore(), memory.Options{
		Config:  cfg,
		Logger:  log,
		Metrics: met,
	})
	mem, err := reg.Get(ctx, conversationFlag)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, metrics: met, registry: reg, id: conversationFlag, mem: mem}, nil
}

func (a *app) save(ctx context.Context) error {
	return a.registry.Save(ctx, a.id)
}

// close flushes the metrics textfile and the logger.
func (a *app) close() {
	if metricsFileFlag != "" {
		if err := a.metrics.WriteTextfile(metricsFileFlag); err != nil {
			a.log.Warn("write metrics file", zap.String("path", metricsFileFlag), zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// splitTags parses a comma-separated tag list, dropping blanks.
func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// tagArgs merges positional tags with the --tags flag.
func tagArgs(cmd *cobra.Command, args []string) []string {
	var tags []string
	for _, a := range args {
		tags = append(tags, splitTags(a)...)
	}
	if s, _ := cmd.Flags().GetString("tags"); s != "" {
		tags = append(tags, splitTags(s)...)
	}
	return tags
}

// fail closes the app, flushing metrics and the store, then exits.
func (a *app) fail(msg string, err error) {
	a.close()
	exitErr(msg, err)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
