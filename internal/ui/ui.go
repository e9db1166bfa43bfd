package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	CommandView
	EditingView
	ResultView
)

// Engine is what the TUI needs from [tasks.EditEngine].
type Engine interface {
	Playlists(ctx context.Context, name string) ([]*models.PersistedPlaylist, error)
	Tracks(ctx context.Context, playlistID string) ([]models.Track, error)
	Playlist(ctx context.Context, playlistID string) (*models.PersistedPlaylist, error)
	Edit(ctx context.Context, progress chan<- tasks.ProgressUpdate, playlistID, command string, prefs *models.UserPreferences) (*tasks.EditOutcome, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       Engine
	prefs        *models.UserPreferences
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	input        textinput.Model
	selected     *models.PersistedPlaylist
	command      string
	progressChan chan tasks.ProgressUpdate
	done         chan editCompleteMsg
	progress     tasks.ProgressUpdate
	outcome      *tasks.EditOutcome
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model over engine. prefs may be nil.
func NewModel(ctx context.Context, engine Engine, prefs *models.UserPreferences) *Model {
	input := textinput.New()
	input.Placeholder = "remove songs under 3 minutes, sort by energy, make it more chill..."
	input.CharLimit = 280
	input.Width = 60

	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		engine:       engine,
		prefs:        prefs,
		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		trackList:    list.New(nil, list.NewDefaultDelegate(), 0, 0),
		input:        input,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by loading stored playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case CommandView:
			return m.handleCommandKeys(msg)
		case EditingView:
			if msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl.DTO()}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		m.view = PlaylistListView
		return m, nil

	case tracksFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, nil
		}
		m.err = nil
		m.selected = msg.playlist
		m.trackList = list.New(trackItems(msg.tracks), list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.playlist.Name())
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case editCompleteMsg:
		m.outcome = msg.outcome
		m.err = msg.err
		m.progressChan, m.done = nil, nil
		if msg.err == nil && msg.outcome != nil {
			m.selected = msg.outcome.Playlist
			m.trackList.SetItems(trackItems(msg.outcome.Result.Tracks))
		}
		m.view = ResultView
		return m, nil
	}

	return m.updateComponents(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit})
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case CommandView:
		return m.renderCommand()
	case EditingView:
		return m.renderEditing()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				return m, m.fetchTracks(pl.playlist.ID)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = PlaylistListView
			return m, m.fetchPlaylists()
		case key.Matches(msg, m.keys.edit):
			m.view = CommandView
			m.input.SetValue("")
			return m, m.input.Focus()
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleCommandKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.view = TrackListView
		return m, nil
	case tea.KeyEnter:
		command := strings.TrimSpace(m.input.Value())
		if command == "" {
			return m, nil
		}
		m.input.Blur()
		m.command = command
		m.view = EditingView
		return m, m.startEdit(command)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.edit):
		m.err = nil
		m.view = CommandView
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.restart), key.Matches(msg, m.keys.back):
		m.err = nil
		m.outcome = nil
		m.view = TrackListView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	case CommandView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.engine.Playlists(m.ctx, "")
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) fetchTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		playlist, err := m.engine.Playlist(m.ctx, playlistID)
		if err != nil {
			return tracksFetchedMsg{err: err}
		}
		tracks, err := m.engine.Tracks(m.ctx, playlistID)
		return tracksFetchedMsg{playlist: playlist, tracks: tracks, err: err}
	}
}

func (m *Model) startEdit(command string) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan editCompleteMsg, 1)
	m.progressChan, m.done = progress, done
	m.progress = tasks.ProgressUpdate{}

	playlistID := m.selected.ID()
	go func() {
		outcome, err := m.engine.Edit(m.ctx, progress, playlistID, command, m.prefs)
		done <- editCompleteMsg{outcome: outcome, err: err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return editCompleteMsg{}
		}

		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.edit, m.keys.back, m.keys.quit}
	header := ""
	if m.selected != nil && m.selected.Theme() != "" {
		header = styles.theme.Render("Theme: "+m.selected.Theme()) + "\n"
	}
	return fmt.Sprintf("%s%s\n\n%s", header, m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderCommand() string {
	title := styles.title.Render(fmt.Sprintf("Edit '%s'", m.selected.Name()))
	helpKeys := []key.Binding{m.keys.submit, m.keys.back}
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderEditing() string {
	title := styles.title.Render("Editing Playlist")
	command := styles.label.Render("Command: ") + m.command

	var phase string
	switch m.progress.Phase {
	case tasks.LoadPlaylist:
		phase = "Loading tracks..."
	case tasks.EditTracks:
		phase = "Interpreting and applying the command..."
	case tasks.PersistTracks:
		phase = "Saving tracks..."
	case tasks.RecordEdit:
		phase = "Recording history..."
	default:
		phase = "Processing..."
	}
	if m.progress.Total > 0 {
		phase = fmt.Sprintf("[%d/%d] %s", m.progress.Step, m.progress.Total, phase)
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n%s", title, command, styles.phase.Render(phase), styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.edit, m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Edit failed: %v", m.err)), helpView)
	}
	if m.outcome == nil || m.outcome.Result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ " + m.command)
	body := formatter.FormatEditResult(m.outcome.Result)
	if len(m.outcome.Result.Suggestions) > 0 {
		body += "\n" + styles.warn.Render("Suggestions were not applied; ask for a specific change to act on them.")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, helpView)
}
