package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dopplerkit/dopplermcp/doppler"
)

var (
	flagProject string
	flagConfig  string
	flagCommand string
	flagTimeout time.Duration
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "dopplermcp",
	Short: "Drive a Doppler MCP server from the terminal",
	Long: "dopplermcp spawns a Doppler MCP server (npx -y mcp-doppler-server by default)\n" +
		"and exposes its tools as subcommands. Set DOPPLER_TOKEN, or put it in a .env\n" +
		"file next to where you run the command.",
	SilenceUsage: true,
}

// Execute runs the root command. Environment and logging are configured
// before any subcommand sees them.
func Execute() {
	// Load environment from .env if present and configure the logger.
	_ = godotenv.Load()
	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if level == "" && (os.Getenv("DEBUG") == "1" || strings.EqualFold(os.Getenv("DEBUG"), "true")) {
		level = "debug"
	}
	switch level {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "Doppler project slug (defaults to DOPPLER_PROJECT)")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Doppler config name (defaults to DOPPLER_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagCommand, "command", "", "MCP server command, arguments included (defaults to DOPPLER_MCP_COMMAND)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "per-call timeout (defaults to DOPPLER_MCP_TIMEOUT)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print results as JSON")
}

// loadConfig resolves the environment configuration and applies flag
// overrides on top.
func loadConfig() (doppler.Config, error) {
	cfg, err := doppler.ConfigFromEnv()
	if err != nil {
		return doppler.Config{}, err
	}
	if flagCommand != "" {
		fields := strings.Fields(flagCommand)
		cfg.Command = fields[0]
		cfg.Args = fields[1:]
	}
	if flagTimeout > 0 {
		cfg.Timeout = flagTimeout
	}
	if flagProject != "" {
		cfg.Project = flagProject
	}
	if flagConfig != "" {
		cfg.ConfigName = flagConfig
	}
	return cfg, nil
}

// connect spawns the MCP server and completes the handshake. Callers own
// the returned client and must Close it.
func connect(ctx context.Context) (*doppler.Client, doppler.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, doppler.Config{}, err
	}

	logrus.WithFields(logrus.Fields{
		"command": cfg.Command,
		"args":    cfg.Args,
	}).Debug("starting MCP server")

	dc, err := doppler.Connect(ctx, cfg)
	if err != nil {
		return nil, doppler.Config{}, err
	}
	return dc, cfg, nil
}

// scope returns the project and config every secret operation needs.
func scope(cfg doppler.Config) (string, string, error) {
	if cfg.Project == "" {
		return "", "", fmt.Errorf("no project selected: use --project or set DOPPLER_PROJECT")
	}
	if cfg.ConfigName == "" {
		return "", "", fmt.Errorf("no config selected: use --config or set DOPPLER_CONFIG")
	}
	return cfg.Project, cfg.ConfigName, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
