package interventions

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/worktracker-go/cmd/cmdutil"
	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/intervention"
	"github.com/tphakala/worktracker-go/internal/session"
)

// Command returns the interventions command with its list, create and
// transition subcommands
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "interventions",
		Aliases: []string{"iv"},
		Short:   "List, create and move interventions of a record",
	}

	cmd.AddCommand(listCommand(settings), createCommand(settings), transitionCommand(settings))
	return cmd
}

// load opens the record and fetches its interventions.
func load(cmd *cobra.Command, settings *conf.Settings, arg string) (*session.Session, int64, error) {
	id, err := cmdutil.ParseID("record", arg)
	if err != nil {
		return nil, 0, err
	}
	s, err := cmdutil.OneShot(cmd, settings, 0)
	if err != nil {
		return nil, 0, err
	}
	if _, err := cmdutil.Open(s, id); err != nil {
		s.Close()
		return nil, 0, err
	}

	var listErr error
	s.Coord.LoadInterventions(id, func(_ []intervention.Item, err error) { listErr = err })
	if listErr != nil {
		err := cmdutil.Failure(s, listErr)
		s.Close()
		return nil, 0, err
	}
	return s, id, nil
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list <record-id>",
		Short: "Print the interventions of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := load(cmd, settings, args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			return cmdutil.Print(cmd, s)
		},
	}
}

func createCommand(settings *conf.Settings) *cobra.Command {
	var (
		note   string
		fields []string
	)

	cmd := &cobra.Command{
		Use:   "create <record-id> <type-code>",
		Short: "Propose a new intervention",
		Long: `Propose a new intervention of the given type.

Some types require a note; see ui.interventionnotes in the config file.

Examples:
  worktracker interventions create 42 RZ
  worktracker interventions create 42 KAC --note "Suchý strom u cesty"
  worktracker interventions create 42 RZ --field urgency=2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra := make(map[string]string, len(fields))
			for _, kv := range fields {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || strings.TrimSpace(k) == "" {
					return fmt.Errorf("invalid field %q, expected key=value", kv)
				}
				extra[strings.TrimSpace(k)] = v
			}

			s, id, err := load(cmd, settings, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			code := strings.TrimSpace(args[1])
			var createErr error
			s.Coord.CreateIntervention(id, intervention.CreateFields{
				Code:  code,
				Note:  note,
				Extra: extra,
			}, func(_ intervention.Item, err error) { createErr = err })
			if errors.Is(createErr, intervention.ErrNoteRequired) {
				return fmt.Errorf("type %s requires a note (%s): %w", code, s.Coord.NoteHint(code), createErr)
			}
			if createErr != nil {
				return cmdutil.Failure(s, createErr)
			}
			return cmdutil.Print(cmd, s)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Note for the intervention")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Additional form field as key=value (repeatable)")

	return cmd
}

func transitionCommand(settings *conf.Settings) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "transition <record-id> <intervention-id> <status>",
		Short: "Move an intervention to another status",
		Long: `Move an intervention along its lifecycle. The server decides which
moves are offered; see the actions column of "interventions list".

Statuses: proposed, done_pending_owner, completed

Examples:
  worktracker interventions transition 42 7 done_pending_owner
  worktracker interventions transition 42 7 completed
  worktracker interventions transition 42 7 proposed --note "Chybí foto po zásahu"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			interventionID, err := cmdutil.ParseID("intervention", args[1])
			if err != nil {
				return err
			}
			target := intervention.Status(strings.TrimSpace(args[2]))
			if !target.Valid() {
				return fmt.Errorf("unknown status %q", args[2])
			}

			s, id, err := load(cmd, settings, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			var transitionErr error
			s.Coord.TransitionIntervention(id, interventionID, target, note, func(err error) { transitionErr = err })
			if transitionErr != nil {
				return cmdutil.Failure(s, transitionErr)
			}
			return cmdutil.Print(cmd, s)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Note, required when returning an intervention")

	return cmd
}
