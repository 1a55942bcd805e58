package move

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/worktracker-go/cmd/cmdutil"
	"github.com/tphakala/worktracker-go/internal/conf"
)

// Command returns the move command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <record-id> <lat,lon>",
		Short: "Store a new position for a record",
		Long: `Store a new position for a record. The coordinate is latitude first.

Examples:
  worktracker move 42 49.9012,18.3521
  worktracker move 42 "49.9012, 18.3521"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseID("record", args[0])
			if err != nil {
				return err
			}
			// "49.9, 18.3" may arrive split by the shell
			raw := strings.Join(args[1:], " ")

			s, err := cmdutil.OneShot(cmd, settings, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := cmdutil.Open(s, id); err != nil {
				return err
			}
			if !s.Coord.EnterMove() {
				return fmt.Errorf("record %d cannot be moved", id)
			}
			if err := s.Coord.SetPendingLocation(raw); err != nil {
				s.Coord.CancelMove()
				return err
			}

			var commitErr error
			s.Coord.CommitMove(func(err error) { commitErr = err })
			if commitErr != nil {
				return cmdutil.Failure(s, commitErr)
			}
			return cmdutil.Print(cmd, s)
		},
	}

	return cmd
}
