package assess

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tphakala/worktracker-go/cmd/cmdutil"
	"github.com/tphakala/worktracker-go/internal/assessment"
	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/session"
)

// Command returns the assess command with its get and set subcommands
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Read or write the condition assessment of a record",
	}
	cmd.AddCommand(getCommand(settings), setCommand(settings))
	return cmd
}

// load fetches the stored assessment overlaid on the blank form.
func load(cmd *cobra.Command, settings *conf.Settings, arg string) (*session.Session, int64, assessment.Assessment, error) {
	id, err := cmdutil.ParseID("record", arg)
	if err != nil {
		return nil, 0, assessment.Assessment{}, err
	}
	s, err := cmdutil.OneShot(cmd, settings, 0)
	if err != nil {
		return nil, 0, assessment.Assessment{}, err
	}
	if _, err := cmdutil.Open(s, id); err != nil {
		s.Close()
		return nil, 0, assessment.Assessment{}, err
	}

	var (
		form    assessment.Assessment
		loadErr error
	)
	s.Coord.LoadAssessment(id, func(a assessment.Assessment, err error) { form, loadErr = a, err })
	if loadErr != nil {
		err := cmdutil.Failure(s, loadErr)
		s.Close()
		return nil, 0, assessment.Assessment{}, err
	}
	return s, id, form, nil
}

func getCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "get <record-id>",
		Short: "Print the assessment as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, form, err := load(cmd, settings, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(form); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "# %s, %s, %s\n",
				s.Printer.Perspective(form.Perspective),
				s.Printer.Mistletoe(deref(form.MistletoeLevel)),
				s.Printer.Obstacle(deref(form.AccessObstacleLevel)))
			return err
		},
	}
}

func setCommand(settings *conf.Settings) *cobra.Command {
	var (
		dbh, height, crownWidth, crownArea float64
		age, vitality, health, stability   int
		mistletoe, obstacle                int
		perspective                        string
	)

	cmd := &cobra.Command{
		Use:   "set <record-id>",
		Short: "Change assessment fields",
		Long: `Change assessment fields. Only the flags given are changed; the rest
keep their stored values. The crown area is derived from crown width and
height when it is not stored or given.

Examples:
  worktracker assess set 42 --dbh 54 --height 18.5 --crown-width 9
  worktracker assess set 42 --vitality 2 --perspective b`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var change assessment.Assessment
			setFloat(flags, "dbh", dbh, &change.DBHcm)
			setFloat(flags, "height", height, &change.HeightM)
			setFloat(flags, "crown-width", crownWidth, &change.CrownWidthM)
			setFloat(flags, "crown-area", crownArea, &change.CrownAreaM2)
			setInt(flags, "age", age, &change.PhysiologicalAge)
			setInt(flags, "vitality", vitality, &change.Vitality)
			setInt(flags, "health", health, &change.HealthState)
			setInt(flags, "stability", stability, &change.Stability)
			setInt(flags, "mistletoe", mistletoe, &change.MistletoeLevel)
			setInt(flags, "obstacle", obstacle, &change.AccessObstacleLevel)
			if flags.Changed("perspective") {
				p, err := parsePerspective(perspective)
				if err != nil {
					return err
				}
				change.Perspective = &p
			}

			s, id, form, err := load(cmd, settings, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			var saveErr error
			s.Coord.SaveAssessment(id, change.Overlay(form), func(err error) { saveErr = err })
			if saveErr != nil {
				return cmdutil.Failure(s, saveErr)
			}
			return cmdutil.Print(cmd, s)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&dbh, "dbh", 0, "Trunk diameter at breast height in cm")
	f.Float64Var(&height, "height", 0, "Tree height in m")
	f.Float64Var(&crownWidth, "crown-width", 0, "Crown width in m")
	f.Float64Var(&crownArea, "crown-area", 0, "Crown area in m²")
	f.IntVar(&age, "age", 0, "Physiological age, 1 to 5")
	f.IntVar(&vitality, "vitality", 0, "Vitality, 1 to 5")
	f.IntVar(&health, "health", 0, "Health state, 1 to 5")
	f.IntVar(&stability, "stability", 0, "Stability, 1 to 5")
	f.IntVar(&mistletoe, "mistletoe", 0, "Mistletoe abundance, 1 to 5")
	f.IntVar(&obstacle, "obstacle", 0, "Access obstacle, 0 to 2")
	f.StringVar(&perspective, "perspective", "", "Perspective class a, b or c (or slider position 1 to 3)")

	return cmd
}

func setFloat(flags *pflag.FlagSet, name string, v float64, dst **float64) {
	if flags.Changed(name) {
		*dst = &v
	}
}

func setInt(flags *pflag.FlagSet, name string, v int, dst **int) {
	if flags.Changed(name) {
		*dst = &v
	}
}

func parsePerspective(s string) (assessment.Perspective, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if p, ok := assessment.PerspectiveFromSlider(n); ok {
			return p, nil
		}
	}
	if p := assessment.Perspective(s); p.Valid() {
		return p, nil
	}
	return "", fmt.Errorf("unknown perspective %q", s)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
