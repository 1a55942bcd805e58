// Package cmdutil holds helpers shared by the worktracker subcommands.
package cmdutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/loop"
	"github.com/tphakala/worktracker-go/internal/panel"
	"github.com/tphakala/worktracker-go/internal/session"
)

// Annotation keys subcommands use to adjust start-up.
const (
	// AnnotationSkipConfig marks commands that run without loading settings
	AnnotationSkipConfig = "worktracker/skip-config"
	// AnnotationFileLogging moves log output from the console to the log file
	AnnotationFileLogging = "worktracker/file-logging"
)

// ParseID parses a positive record or intervention id.
func ParseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, s)
	}
	return id, nil
}

// OneShot builds a session whose tasks finish before each call returns.
func OneShot(cmd *cobra.Command, settings *conf.Settings, projectID int64) (*session.Session, error) {
	return session.New(settings, session.Options{
		Executor:  loop.Inline{Ctx: cmd.Context()},
		Logger:    logger.Global().Module("cli"),
		ProjectID: projectID,
	})
}

// Open selects id and fails when its detail could not be loaded.
func Open(s *session.Session, id int64) (panel.View, error) {
	s.Coord.OpenRecord(id, panel.Hints{})
	v := s.Coord.View()
	if v.Error != "" {
		return v, fmt.Errorf("record %d: %s", id, v.Error)
	}
	return v, nil
}

// Print writes the current panel view to the command output.
func Print(cmd *cobra.Command, s *session.Session) error {
	return session.WriteView(cmd.OutOrStdout(), s.Coord.View())
}

// Failure turns a workflow error into a command error, preferring the
// message the panel shows.
func Failure(s *session.Session, err error) error {
	if err == nil {
		return nil
	}
	if n := s.Coord.View().Notice; n.Error && n.Text != "" {
		return fmt.Errorf("%s: %w", n.Text, err)
	}
	return err
}
