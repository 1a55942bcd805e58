package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/worktracker-go/cmd/assess"
	"github.com/tphakala/worktracker-go/cmd/cmdutil"
	"github.com/tphakala/worktracker-go/cmd/config"
	"github.com/tphakala/worktracker-go/cmd/interventions"
	"github.com/tphakala/worktracker-go/cmd/move"
	"github.com/tphakala/worktracker-go/cmd/photo"
	"github.com/tphakala/worktracker-go/cmd/project"
	"github.com/tphakala/worktracker-go/cmd/show"
	"github.com/tphakala/worktracker-go/cmd/tui"
	"github.com/tphakala/worktracker-go/internal/buildinfo"
	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var (
		configFile string
		central    *logger.CentralLogger
	)

	rootCmd := &cobra.Command{
		Use:           "worktracker",
		Short:         "Tree record work tracker client",
		Version:       build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	subcommands := []*cobra.Command{
		show.Command(settings),
		interventions.Command(settings),
		move.Command(settings),
		assess.Command(settings),
		photo.Command(settings),
		project.Command(settings),
		tui.Command(settings),
		config.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[cmdutil.AnnotationSkipConfig] == "true" {
			return nil
		}

		if configFile != "" {
			conf.SetConfigFile(configFile)
		}
		loaded, err := conf.Load()
		if err != nil {
			return err
		}
		*settings = *loaded

		central, err = initialize(settings, build, cmd.Annotations[cmdutil.AnnotationFileLogging] == "true")
		return err
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		telemetry.Flush()
		if central != nil {
			return central.Close()
		}
		return nil
	}

	return rootCmd
}

// initialize is called after settings are loaded and before the subcommand
// runs. It sets up logging and error telemetry.
func initialize(settings *conf.Settings, build *buildinfo.Context, fileLogging bool) (*logger.CentralLogger, error) {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}
	if fileLogging {
		settings.Logging.Console = &logger.ConsoleOutput{Enabled: false}
		if settings.Logging.FileOutput == nil {
			settings.Logging.FileOutput = &logger.FileOutput{Path: logger.DefaultLogPath}
		}
		settings.Logging.FileOutput.Enabled = true
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	if err := telemetry.Init(settings, build, central.Module("main")); err != nil {
		return central, err
	}
	// the bare product name gets the build version appended
	if ua := settings.HTTP.UserAgent; ua == "" || ua == "worktracker" {
		settings.HTTP.UserAgent = build.UserAgent()
	}
	return central, nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVar(configFile, "config", "", "Path to the config file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().String("locale", "", "Panel language, cs or en")
	rootCmd.PersistentFlags().String("baseurl", "", "Tracker server base URL")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("ui.locale", rootCmd.PersistentFlags().Lookup("locale")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("server.baseurl", rootCmd.PersistentFlags().Lookup("baseurl")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
