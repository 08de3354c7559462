package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/five82/cityguide/internal/cityapi"
	"github.com/five82/cityguide/internal/loader"
	"github.com/five82/cityguide/internal/logging"
	"github.com/five82/cityguide/internal/logtail"
	"github.com/five82/cityguide/internal/prefs"
	"github.com/five82/cityguide/internal/selector"
	"github.com/five82/cityguide/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewList View = iota
	ViewDetail
)

const (
	logTick       = time.Second
	logPaneLines  = 8
	logFetchLines = 200
)

// Options configures the UI.
type Options struct {
	Context      context.Context
	Loader       *loader.Loader
	Connectivity *state.Connectivity
	Logger       *logrus.Entry
	LogPath      string
	Prefs        prefs.Prefs
	PrefsPath    string
	// Platform picks the map link copied with y. Empty means web.
	Platform cityapi.Platform
	// Clipboard overrides the system clipboard.
	Clipboard func(string) error
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	loader    *loader.Loader
	conn      *state.Connectivity
	log       *logrus.Entry
	logPath   string
	prefsPath string
	platform  cityapi.Platform
	copy      func(string) error

	cacheChanges <-chan struct{}
	connChanges  <-chan struct{}
	unsubscribe  []func()

	theme      Theme
	showNative bool
	keys       keyMap
	help       help.Model
	spinner    spinner.Model

	currentView View
	width       int
	height      int
	ready       bool

	selectedRow int
	cityID      state.CityID
	cityKey     string
	placeRow    int
	detail      viewport.Model

	showHelp bool
	showLogs bool
	logLines []logtail.Line
	flash    string
}

// New creates the model and subscribes it to store changes.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	platform := opts.Platform
	if platform == "" {
		platform = cityapi.PlatformWeb
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:        ctx,
		loader:     opts.Loader,
		conn:       opts.Connectivity,
		log:        log,
		logPath:    opts.LogPath,
		prefsPath:  prefsPath,
		platform:   platform,
		copy:       copyFn,
		theme:      GetTheme(opts.Prefs.Theme),
		showNative: opts.Prefs.ShowNativeNames,
		showLogs:   opts.Prefs.ShowLogs,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	if m.loader != nil {
		ch, cancel := m.loader.Cache().Subscribe()
		m.cacheChanges = ch
		m.unsubscribe = append(m.unsubscribe, cancel)
	}
	if m.conn != nil {
		ch, cancel := m.conn.Subscribe()
		m.connChanges = ch
		m.unsubscribe = append(m.unsubscribe, cancel)
	}
	return m
}

// Close drops the store subscriptions.
func (m Model) Close() {
	for _, cancel := range m.unsubscribe {
		cancel()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		waitForChange(m.cacheChanges, cacheChangedMsg{}),
		waitForChange(m.connChanges, connChangedMsg{}),
	}
	if m.showLogs {
		cmds = append(cmds, readLogsCmd(m.logPath), tickCmd(logTick))
	}
	if m.loader != nil {
		if cities := selector.AllCities(m.loader); cities.State.IsIdle {
			cmds = append(cmds, m.run(cities.Actions.Load))
		}
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.detail = viewport.New(msg.Width, m.bodyHeight())
			m.ready = true
		}
		m.help.Width = msg.Width
		m.refreshDetail()
		return m, nil

	case cacheChangedMsg:
		m.clampSelection()
		m.refreshDetail()
		return m, waitForChange(m.cacheChanges, cacheChangedMsg{})

	case connChangedMsg:
		m.refreshDetail()
		return m, waitForChange(m.connChanges, connChangedMsg{})

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.anyLoading() {
			m.refreshDetail()
		}
		return m, cmd

	case tickMsg:
		if !m.showLogs {
			return m, nil
		}
		return m, tea.Batch(readLogsCmd(m.logPath), tickCmd(logTick))

	case logTailMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Debug("log tail failed")
			return m, nil
		}
		m.logLines = msg.lines
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.flash = fmt.Sprintf("Copy failed: %v", msg.err)
			m.log.WithError(msg.err).Warn("copy map link failed")
		} else {
			m.flash = "Copied " + msg.url
		}
		return m, nil

	case loadDoneMsg:
		m.clampSelection()
		m.refreshDetail()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.refreshDetail()
		return m, nil
	case key.Matches(msg, m.keys.ToggleNames):
		m.showNative = !m.showNative
		m.savePrefs()
		m.refreshDetail()
		return m, nil
	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		m.savePrefs()
		m.resizeDetail()
		if m.showLogs {
			return m, tea.Batch(readLogsCmd(m.logPath), tickCmd(logTick))
		}
		return m, nil
	}

	if m.loader == nil {
		return m, nil
	}
	// The cache may have changed since the last notification was handled.
	m.clampSelection()
	switch m.currentView {
	case ViewDetail:
		return m.handleDetailKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := selector.AllCities(m.loader)
	count := len(view.State.List)

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < count-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Reload):
		return m, m.run(view.Actions.Load)
	case key.Matches(msg, m.keys.Clear):
		view.Actions.Clear()
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Open):
		if !view.State.IsLoaded || m.selectedRow >= count {
			return m, nil
		}
		city := view.State.List[m.selectedRow]
		cmd := m.openCity(city.ID, city.Key)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	city := selector.SelectedCity(m.loader, m.cityID)
	places := selector.SelectedCityPlaces(m.loader, m.cityID, m.cityKey)

	switch {
	case key.Matches(msg, m.keys.Back):
		m.currentView = ViewList
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.placeRow < len(places.State.List)-1 {
			m.placeRow++
			m.refreshDetail()
		}
	case key.Matches(msg, m.keys.Up):
		if m.placeRow > 0 {
			m.placeRow--
			m.refreshDetail()
		}
	case key.Matches(msg, m.keys.PageDown):
		m.detail.SetYOffset(m.detail.YOffset + m.detail.Height/2)
	case key.Matches(msg, m.keys.PageUp):
		m.detail.SetYOffset(m.detail.YOffset - m.detail.Height/2)
	case key.Matches(msg, m.keys.Reload):
		return m, tea.Batch(m.run(city.Actions.Load), m.run(places.Actions.Load))
	case key.Matches(msg, m.keys.Clear):
		city.Actions.Clear()
		places.Actions.Clear()
		m.placeRow = 0
		m.refreshDetail()
	case key.Matches(msg, m.keys.CopyMap):
		return m, m.copyMapLink(places)
	}
	return m, nil
}

// openCity switches to the detail view and loads whatever is not cached yet.
func (m *Model) openCity(id state.CityID, lookupKey string) tea.Cmd {
	m.currentView = ViewDetail
	m.cityID = id
	m.cityKey = lookupKey
	m.placeRow = 0
	m.detail.GotoTop()
	m.refreshDetail()

	var cmds []tea.Cmd
	city := selector.SelectedCity(m.loader, id)
	if !city.State.IsLoaded && !city.State.IsLoading {
		cmds = append(cmds, m.run(city.Actions.Load))
	}
	places := selector.SelectedCityPlaces(m.loader, id, lookupKey)
	if !places.State.IsLoaded && !places.State.IsLoading {
		cmds = append(cmds, m.run(places.Actions.Load))
	}
	return tea.Batch(cmds...)
}

func (m Model) copyMapLink(places selector.PlacesView) tea.Cmd {
	if !places.State.IsLoaded || m.placeRow >= len(places.State.List) {
		return nil
	}
	place := places.State.List[m.placeRow]
	links, err := cityapi.MapLinks(place.Metadata.Coordinates)
	if err != nil {
		return func() tea.Msg { return copiedMsg{err: err} }
	}
	url := links.For(m.platform)
	if !cityapi.IsOpenableURL(url) {
		url = links.Fallback
	}
	copyFn := m.copy
	return func() tea.Msg {
		return copiedMsg{url: url, err: copyFn(url)}
	}
}

func (m Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, ShowNativeNames: m.showNative, ShowLogs: m.showLogs}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.WithError(err).Warn("save prefs failed")
	}
}

// run wraps an accessor action so it executes off the update loop.
func (m Model) run(action func(context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		action(ctx)
		return loadDoneMsg{}
	}
}

func (m Model) anyLoading() bool {
	if m.loader == nil {
		return false
	}
	if selector.AllCities(m.loader).State.IsLoading {
		return true
	}
	if m.currentView != ViewDetail {
		return false
	}
	return selector.SelectedCity(m.loader, m.cityID).State.IsLoading ||
		selector.SelectedCityPlaces(m.loader, m.cityID, m.cityKey).State.IsLoading
}

func (m *Model) clampSelection() {
	if m.loader == nil {
		return
	}
	if n := len(selector.AllCities(m.loader).State.List); m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}
	if m.currentView == ViewDetail {
		if n := len(selector.SelectedCityPlaces(m.loader, m.cityID, m.cityKey).State.List); m.placeRow >= n {
			m.placeRow = max(n-1, 0)
		}
	}
}

// Messages

type tickMsg time.Time

type cacheChangedMsg struct{}

type connChangedMsg struct{}

type loadDoneMsg struct{}

type logTailMsg struct {
	lines []logtail.Line
	err   error
}

type copiedMsg struct {
	url string
	err error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForChange blocks until ch signals, then emits msg. A nil or closed
// channel emits nothing.
func waitForChange(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

func readLogsCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logFetchLines)
		return logTailMsg{lines: lines, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	if opts.Loader == nil {
		return errors.New("ui requires a loader")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
		opts.Context = ctx
	}
	m := New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
