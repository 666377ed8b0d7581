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
	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/services"
	"github.com/desertthunder/muziek/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	EntryListView
	InputView
)

type inputPurpose int

const (
	inputTitle inputPurpose = iota
	inputSong
)

// Options configures a [Model].
type Options struct {
	CanWrite bool // offer create and add actions
	Browser  shared.BrowserOpener
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	prev     ViewState
	svc      services.PlaylistService
	browser  shared.BrowserOpener
	canWrite bool

	width  int
	height int

	playlistList list.Model
	entryList    list.Model
	ready        bool
	selected     *models.Playlist

	input   textinput.Model
	purpose inputPurpose

	busy   bool
	status string
	err    error
	fatal  error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, svc services.PlaylistService, opts Options) *Model {
	browser := opts.Browser
	if browser == nil {
		browser = shared.SystemBrowser{}
	}

	input := textinput.New()
	input.CharLimit = 150

	return &Model{
		ctx:      ctx,
		view:     PlaylistListView,
		svc:      svc,
		browser:  browser,
		canWrite: opts.CanWrite,
		input:    input,
		busy:     true,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the TUI by fetching playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// View returns the current view state.
func (m *Model) View() string {
	if m.fatal != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.fatal))
	}
	if !m.ready {
		return styles.help.Render("Loading playlists...")
	}

	var body string
	switch m.view {
	case PlaylistListView:
		body = m.renderPlaylistList()
	case EntryListView:
		body = m.renderEntryList()
	case InputView:
		body = m.renderInput()
	}

	return body + "\n" + m.renderStatus()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.ready {
			m.playlistList.SetSize(m.listSize())
			m.entryList.SetSize(m.listSize())
		}
		return m, nil

	case tea.KeyMsg:
		if m.fatal != nil || !m.ready {
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}

		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case EntryListView:
			return m.handleEntryListKeys(msg)
		case InputView:
			return m.handleInputKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	m.busy = false

	switch msg.kind {
	case MsgPlaylistsFetched:
		if msg.err != nil {
			m.fatal = msg.err
			return m, nil
		}
		m.setPlaylists(msg.data.([]*models.Playlist))
		m.view = PlaylistListView
		m.status = ""

	case MsgEntriesFetched:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.selected = msg.data.(*models.Playlist)
		m.setEntries()
		m.view = EntryListView
		m.err = nil

	case MsgPlaylistCreated:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		p := msg.data.(*models.Playlist)
		m.status = fmt.Sprintf("Created playlist %q", p.Title)
		m.err = nil
		return m, m.fetchPlaylists()

	case MsgSongAdded:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		entry := msg.data.(models.PlaylistEntry)
		m.status = fmt.Sprintf("Added %s to %q", entry.VideoID, m.selected.Title)
		m.err = nil
		m.setEntries()

	case MsgOpened:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = "Opened " + msg.data.(string)
	}

	return m, nil
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok && !m.busy {
			m.busy = true
			return m, m.fetchEntries(item.playlist)
		}
		return m, nil
	case key.Matches(msg, m.keys.create):
		if m.canWrite {
			return m, m.prompt(inputTitle, "Playlist title")
		}
		m.err = shared.ErrInsufficientScope
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.svc.Invalidate()
		m.busy = true
		return m, m.fetchPlaylists()
	case key.Matches(msg, m.keys.open):
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.openURL(item.playlist.URL())
		}
		return m, nil
	}

	return m.updateActive(msg)
}

func (m *Model) handleEntryListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.entryList.FilterState() == list.Filtering {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.add):
		if m.canWrite {
			return m, m.prompt(inputSong, "Video URL or ID")
		}
		m.err = shared.ErrInsufficientScope
		return m, nil
	case key.Matches(msg, m.keys.open):
		if item, ok := m.entryList.SelectedItem().(entryItem); ok {
			return m, m.openURL(item.entry.PlayableURL())
		}
		return m, nil
	}

	return m.updateActive(msg)
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.view = m.prev
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}

		m.input.Blur()
		m.view = m.prev
		m.busy = true

		if m.purpose == inputTitle {
			return m, m.createPlaylist(value)
		}
		return m, m.addSong(m.selected, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.ready {
		return m, nil
	}

	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case EntryListView:
		m.entryList, cmd = m.entryList.Update(msg)
	case InputView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) prompt(purpose inputPurpose, placeholder string) tea.Cmd {
	m.prev = m.view
	m.view = InputView
	m.purpose = purpose
	m.err = nil
	m.input.Reset()
	m.input.Placeholder = placeholder
	return m.input.Focus()
}

func (m *Model) setPlaylists(playlists []*models.Playlist) {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p}
	}

	w, h := m.listSize()
	m.playlistList = list.New(items, list.NewDefaultDelegate(), w, h)
	m.playlistList.Title = fmt.Sprintf("YouTube Playlists (%d)", len(playlists))
	if !m.ready {
		m.entryList = list.New(nil, list.NewDefaultDelegate(), w, h)
		m.ready = true
	}
}

func (m *Model) setEntries() {
	entries, _ := m.selected.Entries()
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{entry: e}
	}

	m.entryList.SetItems(items)
	m.entryList.Title = fmt.Sprintf("Songs in '%s' (%d)", m.selected.Title, len(entries))
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 0), max(m.height-6, 0)
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.svc.Playlists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchEntries(p *models.Playlist) tea.Cmd {
	return func() tea.Msg {
		_, err := m.svc.Entries(m.ctx, p)
		return entriesFetchedMsg(p, err)
	}
}

func (m *Model) createPlaylist(title string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.svc.CreatePlaylist(m.ctx, title, "", true)
		return playlistCreatedMsg(p, err)
	}
}

func (m *Model) addSong(p *models.Playlist, ref string) tea.Cmd {
	return func() tea.Msg {
		entry, err := m.svc.AddSong(m.ctx, p, ref, "")
		return songAddedMsg(entry, err)
	}
}

func (m *Model) openURL(url string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg(url, m.browser.Open(url))
	}
}

func (m *Model) renderPlaylistList() string {
	bindings := []key.Binding{m.keys.enter, m.keys.open, m.keys.reload}
	if m.canWrite {
		bindings = append(bindings, m.keys.create)
	}
	bindings = append(bindings, m.keys.quit)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(bindings))
}

func (m *Model) renderEntryList() string {
	bindings := []key.Binding{m.keys.open, m.keys.back}
	if m.canWrite {
		bindings = append(bindings, m.keys.add)
	}
	bindings = append(bindings, m.keys.quit)
	return fmt.Sprintf("%s\n\n%s", m.entryList.View(), m.help.ShortHelpView(bindings))
}

func (m *Model) renderInput() string {
	title := "New playlist"
	if m.purpose == inputSong {
		title = fmt.Sprintf("Add a song to '%s'", m.selected.Title)
	}

	return fmt.Sprintf("%s\n%s\n\n%s",
		styles.title.Render(title),
		m.input.View(),
		styles.help.Render("enter to submit • esc to cancel"),
	)
}

func (m *Model) renderStatus() string {
	badge := styles.scopeBadge(m.canWrite)
	switch {
	case m.err != nil:
		return badge + " " + styles.err.Render("✗ "+m.err.Error())
	case m.busy:
		return badge + " " + styles.warn.Render("Working...")
	case m.status != "":
		return badge + " " + styles.ok.Render("✓ "+m.status)
	}
	return badge
}
