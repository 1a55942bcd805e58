package tui

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tphakala/worktracker-go/cmd/cmdutil"
	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/observability"
	"github.com/tphakala/worktracker-go/internal/session"
	apptui "github.com/tphakala/worktracker-go/internal/tui"
)

// Command returns the interactive panel command
func Command(settings *conf.Settings) *cobra.Command {
	var projectID int64

	cmd := &cobra.Command{
		Use:   "tui [record-id]",
		Short: "Run the interactive record panel",
		Long: `Run the interactive record panel in the terminal. Log output goes to
the log file configured under logging.file_output while the panel runs.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{cmdutil.AnnotationFileLogging: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var initial int64
			if len(args) == 1 {
				id, err := cmdutil.ParseID("record", args[0])
				if err != nil {
					return err
				}
				initial = id
			}
			return run(cmd.Context(), settings, initial, projectID)
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Project that 'add to project' targets")

	return cmd
}

func run(parent context.Context, settings *conf.Settings, initial, projectID int64) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Global().Module("tui")
	exec := apptui.NewExecutor(ctx)

	s, err := session.New(settings, session.Options{
		Executor:  exec,
		Logger:    log,
		ProjectID: projectID,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	var wg sync.WaitGroup
	endpoint, err := observability.NewEndpoint(settings, s.Metrics)
	switch {
	case errors.Is(err, observability.ErrMetricsDisabled):
	case err != nil:
		return err
	default:
		if err := endpoint.Start(ctx, &wg); err != nil {
			return fmt.Errorf("failed to start metrics endpoint: %w", err)
		}
	}

	opts := []apptui.Option{apptui.WithLogger(log)}
	if initial > 0 {
		opts = append(opts, apptui.WithInitialRecord(initial))
	}
	app := apptui.NewApp(s.Coord, exec, opts...)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	stop()
	wg.Wait()

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}
