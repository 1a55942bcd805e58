package photo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/worktracker-go/cmd/cmdutil"
	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/photo"
)

// Command returns the photo upload command
func Command(settings *conf.Settings) *cobra.Command {
	var (
		comment string
		takenAt string
	)

	cmd := &cobra.Command{
		Use:   "photo <record-id> <file>",
		Short: "Upload a photo to a record",
		Long: `Upload a photo to a record. The comment is prefixed with the capture
date, which defaults to the file modification time.

Examples:
  worktracker photo 42 IMG_0042.jpg
  worktracker photo 42 IMG_0042.jpg --comment "Dutina v kmeni" --taken 2026-10-02`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseID("record", args[0])
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("error opening photo: %w", err)
			}
			defer f.Close()

			taken := time.Now()
			if info, err := f.Stat(); err == nil {
				taken = info.ModTime()
			}
			if takenAt != "" {
				if taken, err = time.ParseInLocation(time.DateOnly, takenAt, time.Local); err != nil {
					return fmt.Errorf("invalid --taken date %q, expected YYYY-MM-DD", takenAt)
				}
			}

			s, err := cmdutil.OneShot(cmd, settings, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := cmdutil.Open(s, id); err != nil {
				return err
			}

			var uploadErr error
			s.Coord.UploadPhoto(photo.Upload{
				RecordID: id,
				Filename: filepath.Base(args[1]),
				Content:  f,
				Comment:  comment,
				TakenAt:  taken,
			}, func(err error) { uploadErr = err })
			if uploadErr != nil {
				return cmdutil.Failure(s, uploadErr)
			}
			return cmdutil.Print(cmd, s)
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "Photo description")
	cmd.Flags().StringVar(&takenAt, "taken", "", "Capture date as YYYY-MM-DD")

	return cmd
}
