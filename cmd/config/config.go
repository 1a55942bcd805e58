package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/worktracker-go/cmd/cmdutil"
	"github.com/tphakala/worktracker-go/internal/conf"
)

// Command returns the config command with its init and save subcommands
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or export the configuration file",
	}
	cmd.AddCommand(initCommand(), saveCommand(settings))
	return cmd
}

func initCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Long: `Write the default configuration file. Without a path it goes to the
first default location, e.g. ~/.config/worktracker/config.yaml.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{cmdutil.AnnotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				var err error
				if path, err = conf.DefaultConfigFile(); err != nil {
					return err
				}
			}
			if err := conf.WriteDefaultConfig(path, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func saveCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "save <path>",
		Short: "Write the effective settings, including flags and environment, to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.SaveYAMLConfig(args[0], settings); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", args[0])
			return err
		},
	}
}
