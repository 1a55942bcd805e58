package project

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/worktracker-go/cmd/cmdutil"
	"github.com/tphakala/worktracker-go/internal/conf"
)

// Command returns the project command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage project membership of records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "add <project-id> <record-id>",
		Short:   "Add a record to a project",
		Example: "  worktracker project add 3 42",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := cmdutil.ParseID("project", args[0])
			if err != nil {
				return err
			}
			id, err := cmdutil.ParseID("record", args[1])
			if err != nil {
				return err
			}

			s, err := cmdutil.OneShot(cmd, settings, projectID)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := cmdutil.Open(s, id); err != nil {
				return err
			}

			var addErr error
			s.Coord.AddToProject(id, func(err error) { addErr = err })
			if addErr != nil {
				return cmdutil.Failure(s, addErr)
			}
			return cmdutil.Print(cmd, s)
		},
	})

	return cmd
}
