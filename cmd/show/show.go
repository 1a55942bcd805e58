package show

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/worktracker-go/cmd/cmdutil"
	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/geo"
	"github.com/tphakala/worktracker-go/internal/panel"
)

// Command returns the show command
func Command(settings *conf.Settings) *cobra.Command {
	var (
		label   string
		taxon   string
		geojson bool
	)

	cmd := &cobra.Command{
		Use:   "show <record-id>",
		Short: "Open a record and print its panel",
		Long: `Open a record, load its detail from the server and print the panel.

Examples:
  worktracker show 42
  worktracker show 42 --label "Dub u kapličky"
  worktracker show 42 --geojson`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseID("record", args[0])
			if err != nil {
				return err
			}

			s, err := cmdutil.OneShot(cmd, settings, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			s.Coord.OpenRecord(id, panel.Hints{Label: label, Taxon: taxon})
			v := s.Coord.View()

			if geojson {
				if v.Position == nil {
					return fmt.Errorf("record %d has no position", id)
				}
				data, err := geo.Feature(id, v.Title, *v.Position).MarshalJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			if err := cmdutil.Print(cmd, s); err != nil {
				return err
			}
			if v.Error != "" {
				return fmt.Errorf("record %d: %s", id, v.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Title shown until the detail arrives")
	cmd.Flags().StringVar(&taxon, "taxon", "", "Taxon shown until the detail arrives")
	cmd.Flags().BoolVar(&geojson, "geojson", false, "Print the record position as a GeoJSON feature")

	return cmd
}
