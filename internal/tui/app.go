// Package tui is the terminal front end for the record panel.
//
// It follows the Elm architecture of bubbletea: key presses become
// coordinator calls inside Update, requests run as commands, and their
// results come back as messages that are applied inside Update as well.
// The coordinator therefore never sees more than one goroutine.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tphakala/worktracker-go/internal/intervention"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/panel"
	"github.com/tphakala/worktracker-go/internal/photo"
)

// mode is which input the keyboard currently drives.
type mode int

const (
	modeBrowse     mode = iota // panel keys
	modeOpen                   // record id prompt
	modeMove                   // coordinate prompt while moving a record
	modeCreate                 // "CODE note" prompt
	modeReturnNote             // note for returning an intervention
	modeAlbum                  // photo viewer
)

func (m mode) prompt() bool {
	return m == modeOpen || m == modeMove || m == modeCreate || m == modeReturnNote
}

// Option customizes App construction.
type Option func(*App)

// WithInitialRecord opens id when the program starts.
func WithInitialRecord(id int64) Option {
	return func(a *App) { a.initialID = id }
}

// WithLogger sets the logger; the default discards.
func WithLogger(log logger.Logger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log.Module("tui")
		}
	}
}

// App is the bubbletea model.
type App struct {
	coord *panel.Coordinator
	exec  *Executor
	log   logger.Logger

	view     panel.View
	mode     mode
	input    textinput.Model
	selected int // index into view.Interventions.Current
	returnID int64
	album    *photo.Album
	status   string

	initialID int64
	width     int
	height    int
}

// NewApp wires an App to coord. exec must be the executor coord was built
// with.
func NewApp(coord *panel.Coordinator, exec *Executor, opts ...Option) *App {
	input := textinput.New()
	input.CharLimit = 256
	input.Cursor.SetMode(cursor.CursorStatic)

	a := &App{
		coord: coord,
		exec:  exec,
		log:   logger.Discard(),
		input: input,
	}
	for _, opt := range opts {
		opt(a)
	}
	coord.Subscribe(panel.SubscriberFunc(a.panelChanged))
	return a
}

func (a *App) panelChanged(v panel.View) {
	a.view = v
	if n := len(v.Interventions.Current); a.selected >= n {
		a.selected = max(0, n-1)
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	if a.initialID > 0 {
		a.coord.OpenRecord(a.initialID, panel.Hints{})
	}
	return a.exec.Drain()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case applyMsg:
		a.log.Debug("task finished", logger.String("task", msg.name))
		if msg.apply != nil {
			msg.apply()
		}
		return a, a.exec.Drain()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch {
		case a.mode.prompt():
			return a.updatePrompt(msg)
		case a.mode == modeAlbum:
			return a.updateAlbum(msg)
		default:
			return a.updateBrowse(msg)
		}
	}
	return a, nil
}

func (a *App) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.status = ""
	id, active := a.coord.Active()

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "o":
		return a, a.startPrompt(modeOpen, "record id")
	case "esc":
		a.coord.Close()
	case "r":
		a.coord.Refresh()
	case "up", "k":
		if a.selected > 0 {
			a.selected--
		}
	case "down", "j":
		if a.selected < len(a.view.Interventions.Current)-1 {
			a.selected++
		}
	}

	if !active {
		return a, a.exec.Drain()
	}

	switch msg.String() {
	case "i":
		a.coord.LoadInterventions(id, nil)
	case "n":
		if a.view.Caps.Interventions {
			return a, a.startPrompt(modeCreate, "CODE note")
		}
	case "d":
		a.transition(intervention.ActionMarkDone)
	case "c":
		a.transition(intervention.ActionConfirm)
	case "x":
		if row, ok := a.selectedRow(); ok && offers(row, intervention.ActionReturn) {
			a.returnID = row.ID
			return a, a.startPrompt(modeReturnNote, "note")
		}
		a.status = "return is not offered for this intervention"
	case "m":
		if a.coord.EnterMove() {
			return a, a.startPrompt(modeMove, "lat,lon")
		}
		a.status = "this record cannot be moved"
	case "p":
		a.coord.AddToProject(id, nil)
	case "f":
		if album, ok := a.coord.Album(0); ok {
			a.album = album
			a.mode = modeAlbum
		}
	}
	return a, a.exec.Drain()
}

func (a *App) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if a.mode == modeMove {
			a.coord.CancelMove()
		}
		a.endPrompt()
		return a, a.exec.Drain()
	case "enter":
		a.submit(strings.TrimSpace(a.input.Value()))
		return a, a.exec.Drain()
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) submit(value string) {
	id, _ := a.coord.Active()

	switch a.mode {
	case modeOpen:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			a.status = fmt.Sprintf("not a record id: %q", value)
			return
		}
		a.endPrompt()
		a.coord.OpenRecord(n, panel.Hints{})

	case modeMove:
		if err := a.coord.SetPendingLocation(value); err != nil {
			a.status = err.Error()
			return
		}
		a.endPrompt()
		a.coord.CommitMove(nil)

	case modeCreate:
		code, note, _ := strings.Cut(value, " ")
		a.endPrompt()
		a.coord.CreateIntervention(id, intervention.CreateFields{Code: code, Note: note}, nil)

	case modeReturnNote:
		interventionID := a.returnID
		a.endPrompt()
		a.coord.TransitionIntervention(id, interventionID, intervention.StatusProposed, value, nil)
	}
}

func (a *App) updateAlbum(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		a.album.Prev()
	case "right", "l":
		a.album.Next()
	case "esc", "q", "f":
		a.album = nil
		a.mode = modeBrowse
	}
	return a, nil
}

func (a *App) startPrompt(m mode, placeholder string) tea.Cmd {
	a.mode = m
	a.input.Reset()
	a.input.Placeholder = placeholder
	return a.input.Focus()
}

func (a *App) endPrompt() {
	a.mode = modeBrowse
	a.returnID = 0
	a.input.Blur()
	a.input.Reset()
}

func (a *App) selectedRow() (panel.InterventionRow, bool) {
	rows := a.view.Interventions.Current
	if a.selected < 0 || a.selected >= len(rows) {
		return panel.InterventionRow{}, false
	}
	return rows[a.selected], true
}

func offers(row panel.InterventionRow, action intervention.Action) bool {
	for _, b := range row.Actions {
		if b.Action == action {
			return true
		}
	}
	return false
}

func (a *App) transition(action intervention.Action) {
	row, ok := a.selectedRow()
	if !ok || !offers(row, action) {
		a.status = fmt.Sprintf("%s is not offered for this intervention", action)
		return
	}
	id, _ := a.coord.Active()
	a.coord.TransitionIntervention(id, row.ID, action.Target(), "", nil)
}

// View implements tea.Model.
func (a *App) View() string {
	sections := []string{headerStyle.Render("⬡ WORK TRACKER")}

	if a.mode == modeAlbum && a.album != nil {
		sections = append(sections, a.renderAlbum())
	} else {
		sections = append(sections, boxStyle.Width(a.boxWidth()).Render(a.renderPanel()))
	}

	if a.mode.prompt() {
		sections = append(sections, a.input.View())
	}
	if a.status != "" {
		sections = append(sections, errorStyle.Render(a.status))
	}
	sections = append(sections, footerStyle.Render(a.keyHints()))
	return strings.Join(sections, "\n")
}

func (a *App) boxWidth() int {
	if a.width <= 0 {
		return 72
	}
	return max(40, a.width-2)
}

func (a *App) renderPanel() string {
	v := a.view
	if !v.Open {
		return mutedStyle.Render("No record selected. Press o to open one.")
	}

	title := titleStyle.Render(v.Title)
	if v.Loading {
		title += mutedStyle.Render("  …")
	}
	lines := []string{title}
	if v.Taxon != "" {
		lines = append(lines, v.Taxon)
	}
	if v.Error != "" {
		lines = append(lines, errorStyle.Render(v.Error))
	}
	if v.Position != nil {
		lines = append(lines, mutedStyle.Render(v.Position.String()))
	}
	lines = append(lines, mutedStyle.Render(v.DetailURL))

	var flags []string
	if v.HasAssessment {
		flags = append(flags, "assessed")
	}
	if v.InProject {
		flags = append(flags, "in project")
	}
	if len(flags) > 0 {
		lines = append(lines, okStyle.Render(strings.Join(flags, " · ")))
	}

	lines = append(lines, sectionStyle.Render("Photos"), renderPhotos(v.Photos))

	if v.Caps.Interventions {
		lines = append(lines, sectionStyle.Render("Interventions"), a.renderInterventions())
	}
	if v.Move.Active {
		lines = append(lines, sectionStyle.Render("Move"), renderMove(v.Move))
	}
	if v.Notice.Text != "" {
		style := okStyle
		if v.Notice.Error {
			style = errorStyle
		}
		lines = append(lines, "", style.Render(v.Notice.Text))
	}
	return strings.Join(lines, "\n")
}

func renderPhotos(s panel.PhotoSection) string {
	switch {
	case s.Error:
		return errorStyle.Render(s.Text)
	case s.Text != "":
		return mutedStyle.Render(s.Text)
	}
	lines := make([]string, 0, len(s.Thumbs)+1)
	for _, th := range s.Thumbs {
		lines = append(lines, fmt.Sprintf("[%d] %s", th.Index+1, th.Src))
	}
	if more := s.Total - len(s.Thumbs); more > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("+%d more (f to browse)", more)))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderInterventions() string {
	s := a.view.Interventions
	if s.Text != "" {
		return mutedStyle.Render(s.Text)
	}
	if !s.Loaded {
		return mutedStyle.Render("press i to load")
	}

	var lines []string
	for i, row := range s.Current {
		line := formatRow(row)
		if i == a.selected {
			line = selectedStyle.Render("› " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
		if row.Timestamp != "" {
			lines = append(lines, mutedStyle.Render("    "+row.Timestamp))
		}
	}
	for _, row := range s.History {
		lines = append(lines, mutedStyle.Render("  "+formatRow(row)))
	}
	return strings.Join(lines, "\n")
}

func formatRow(row panel.InterventionRow) string {
	label := row.Name
	if label == "" {
		label = row.Code
	}
	line := fmt.Sprintf("%s – %s", label, row.Status)
	if row.Note != "" {
		line += fmt.Sprintf(" (%s)", row.Note)
	}
	if len(row.Actions) > 0 {
		names := make([]string, len(row.Actions))
		for i, b := range row.Actions {
			names[i] = b.Label
		}
		line += "  [" + strings.Join(names, " | ") + "]"
	}
	return line
}

func renderMove(s panel.MoveSection) string {
	lines := []string{s.Text}
	if s.Error != "" {
		lines = append(lines, errorStyle.Render(s.Error))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderAlbum() string {
	p, ok := a.album.Current()
	if !ok {
		return mutedStyle.Render("No photos")
	}
	head := titleStyle.Render(fmt.Sprintf("%s · %d/%d", a.view.Title, a.album.Index()+1, a.album.Len()))
	body := []string{head, photo.Source(p)}
	if p.Description != "" {
		body = append(body, mutedStyle.Render(p.Description))
	}
	return boxStyle.Width(a.boxWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}

func (a *App) keyHints() string {
	switch {
	case a.mode.prompt():
		return "Enter → submit    Esc → cancel"
	case a.mode == modeAlbum:
		return "←/→ → browse    Esc → back"
	case !a.view.Open:
		return "o → open    q → quit"
	}
	hints := []string{"o open", "r refresh", "esc close"}
	if a.view.Caps.Interventions {
		hints = append(hints, "i interventions", "n new", "d done", "c confirm", "x return")
	}
	if a.view.Caps.Move {
		hints = append(hints, "m move")
	}
	if a.view.Caps.AddToProject {
		hints = append(hints, "p add to project")
	}
	if a.view.Photos.Total > 0 {
		hints = append(hints, "f photos")
	}
	return strings.Join(hints, " · ")
}
