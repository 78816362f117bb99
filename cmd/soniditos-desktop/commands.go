package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soniditos/soniditos-desktop/internal/config"
	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
	"github.com/soniditos/soniditos-desktop/internal/presence"
	"github.com/soniditos/soniditos-desktop/internal/utils"
	"github.com/soniditos/soniditos-desktop/pkg/discord"
)

// newRootCommand creates the root command. Running it without a subcommand
// starts the desktop shell.
func newRootCommand(version, commit, buildDate string) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Desktop shell for open.soniditos.com",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			logger.Info("Starting "+config.AppName,
				"version", version,
				"commit", commit,
				"buildDate", buildDate,
			)
			return run(cfg, logger)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/soniditos/soniditos.yaml)")
	flags.String("log-level", config.LogLevelInfo, "Log level (debug, info, warn, error)")
	flags.String("log-format", config.LogFormatText, "Log format (text, json, pretty)")
	flags.String("css", "", "Path to custom CSS file (default: $XDG_CONFIG_HOME/soniditos/custom.css)")

	bindFlags(v, flags)

	cmd.AddCommand(newVersionCommand(version, commit, buildDate))
	cmd.AddCommand(newDiagnoseCommand(v))

	return cmd
}

// bindFlags maps command line flags onto config keys. Bound flags take
// precedence over the config file and environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("app.custom_css", flags.Lookup("css"))
}

// loadConfig loads the configuration and installs the default logger.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, *slog.Logger, error) {
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, apperrors.Log(utils.SetupErrorLogger(), err, "failed to load configuration", "path", configFile)
	}

	logger := utils.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	utils.SetAsDefaultLogger(logger)
	return cfg, logger, nil
}

// newVersionCommand creates the version command
func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", config.AppName)
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Build Date: %s\n", buildDate)
		},
	}
}

// newDiagnoseCommand reports config paths, the presence record and whether
// the presence service is reachable.
func newDiagnoseCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check configuration and presence service connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			defer cancel()
			return diagnose(ctx, cmd.OutOrStdout(), cfg, discord.DefaultDialer)
		},
	}
}

// diagnose renders the diagnostic report to w.
func diagnose(ctx context.Context, w io.Writer, cfg *config.Config, dial discord.Dialer) error {
	configPath := cfg.Path()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	if _, err := os.Stat(configPath); err != nil {
		configPath += " (not found, using defaults)"
	}

	cssPath := customCSSPath(cfg)
	cssStatus := "absent"
	if _, err := os.Stat(cssPath); err == nil {
		cssStatus = "present"
	}

	var presenceStatus string
	pc, err := presence.LoadConfig(cfg.Presence.ConfigFile)
	switch {
	case apperrors.IsNotFound(err):
		presenceStatus = pterm.Yellow("disabled: no presence config")
	case apperrors.IsInvalidInput(err):
		presenceStatus = pterm.Red("invalid: " + err.Error())
	case err != nil:
		presenceStatus = pterm.Red("disabled: " + err.Error())
	default:
		presenceStatus = pterm.Green(fmt.Sprintf("ok (client id %s)", pc.ClientID))
	}

	ipcStatus := pterm.Green("reachable")
	conn, err := dial(ctx)
	switch {
	case apperrors.IsNotFound(err):
		ipcStatus = pterm.Yellow("not running (no IPC endpoint)")
	case err != nil:
		ipcStatus = pterm.Yellow("unreachable: " + err.Error())
	default:
		_ = conn.Close()
	}

	data := pterm.TableData{
		{pterm.Bold.Sprint("Check"), pterm.Bold.Sprint("Value")},
		{"Config file", configPath},
		{"Content URL", cfg.App.URL},
		{"Custom CSS", cssPath + " (" + cssStatus + ")"},
		{"Presence config", cfg.Presence.ConfigFile},
		{"Presence", presenceStatus},
		{"Presence IPC", ipcStatus},
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, table)
	return err
}

// customCSSPath returns the configured stylesheet path or the default one
func customCSSPath(cfg *config.Config) string {
	if cfg.App.CustomCSS != "" {
		return cfg.App.CustomCSS
	}
	return config.GetCustomCSSPath()
}
