// Package tui provides the interactive terminal UI for darter.
package tui

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"darter/internal/config"
	"darter/internal/execx"
	"darter/internal/history"
	"darter/internal/models"
	"darter/internal/plugin"
	"darter/internal/ranking"
	"darter/internal/stats"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	resultItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	descStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	verbStyle = lipgloss.NewStyle().
			Foreground(cyanColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	notifyStyle = lipgloss.NewStyle().
			Foreground(successColor)

	suggestStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)

// HistoryStore is the slice of the history store the UI needs.
type HistoryStore interface {
	RecordSelection(id string, kind models.ItemKind, term string, now time.Time) error
	Snapshot() ([]models.HistoryItem, error)
	Samples(limit int) ([]history.SelectionSample, error)
}

// Plugin view kinds within plugin mode.
const (
	viewResults = "results"
	viewCard    = "card"
	viewForm    = "form"
	viewPrompt  = "prompt"
	viewImages  = "imageBrowser"
)

// App is the launcher TUI model.
type App struct {
	cfg      *config.Config
	pipeline *ranking.Pipeline
	runner   *plugin.Runner
	registry *plugin.Registry
	history  HistoryStore
	spawner  execx.Spawner

	input   textinput.Model
	width   int
	height  int
	message string

	// search mode
	results     []models.RankedCandidate
	selectedIdx int
	searchGen   int
	suggestions map[string]stats.Suggestion

	// plugin mode
	pluginMode    bool
	pluginName    string
	pluginView    string
	pluginResults []plugin.Result
	pluginActions []plugin.PluginAction
	pluginIdx     int
	card          plugin.Card
	form          *formModel
	prompt        plugin.Prompt
	images        plugin.ImageBrowser
	confirm       *plugin.PluginAction
	pluginErr     string
}

// New assembles the launcher UI over its collaborators.
func New(cfg *config.Config, pipeline *ranking.Pipeline, runner *plugin.Runner,
	registry *plugin.Registry, history HistoryStore, spawner execx.Spawner) *App {
	ti := textinput.New()
	ti.Placeholder = "Search apps, plugins, =math, >shell ..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 80

	return &App{
		cfg:         cfg,
		pipeline:    pipeline,
		runner:      runner,
		registry:    registry,
		history:     history,
		spawner:     spawner,
		input:       ti,
		suggestions: map[string]stats.Suggestion{},
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.runSearch(""),
		a.loadSuggestions(),
		a.waitEvent(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 6

	case searchDebouncedMsg:
		if msg.gen == a.searchGen && !a.pluginMode {
			return a, a.runSearch(a.input.Value())
		}

	case rankedMsg:
		// Stale cycles are dropped; only the latest query may paint.
		if msg.gen == a.searchGen && !a.pluginMode {
			a.results = msg.results
			if a.selectedIdx >= len(a.results) {
				a.selectedIdx = max(0, len(a.results)-1)
			}
		}

	case suggestionsMsg:
		a.suggestions = msg.byID

	case pluginEventMsg:
		cmd := a.handlePluginEvent(msg.event)
		return a, tea.Batch(cmd, a.waitEvent())

	case launchedMsg:
		if msg.err != nil {
			a.message = "Error: " + msg.err.Error()
			return a, nil
		}
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		a.runner.Exit()
		return a, tea.Quit

	case "esc":
		return a, a.handleEscape()

	case "up", "ctrl+k":
		a.moveSelection(-1)
		return a, nil

	case "down", "ctrl+j":
		a.moveSelection(1)
		return a, nil

	case "tab", "shift+tab":
		if a.pluginMode && a.pluginView == viewForm && a.form != nil {
			a.form.cycle(msg.String() == "tab")
			return a, nil
		}

	case "enter":
		return a, a.handleEnter()

	case "alt+1", "alt+2", "alt+3", "alt+4", "alt+5", "alt+6", "alt+7", "alt+8", "alt+9":
		if a.pluginMode {
			idx := int(msg.String()[4] - '1')
			return a, a.triggerPluginAction(idx)
		}
	}

	// Everything else is text input.
	if a.pluginMode && a.pluginView == viewForm && a.form != nil {
		cmd := a.form.update(msg)
		return a, cmd
	}

	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	after := a.input.Value()
	if after == before {
		return a, cmd
	}

	if a.pluginMode {
		// Prompts and cards collect text locally; only the results view
		// feeds the handler. The runner debounces realtime mode itself and
		// just remembers the text in submit mode.
		if a.pluginView == viewResults {
			a.runner.Input(after)
		}
		return a, cmd
	}

	// Trigger word plus space hands the session to that plugin.
	if m, rest, ok := a.matchTrigger(after); ok {
		a.input.SetValue(rest)
		a.enterPlugin(m)
		if rest != "" && a.runner.InputMode() == plugin.InputRealtime {
			a.runner.Input(rest)
		}
		return a, cmd
	}

	a.searchGen++
	gen := a.searchGen
	debounce := time.Duration(a.cfg.SearchDebounceMs) * time.Millisecond
	return a, tea.Batch(cmd, tea.Tick(debounce, func(time.Time) tea.Msg {
		return searchDebouncedMsg{gen: gen}
	}))
}

func (a *App) handleEscape() tea.Cmd {
	if !a.pluginMode {
		if a.input.Value() != "" {
			a.input.SetValue("")
			a.searchGen++
			return a.runSearch("")
		}
		return tea.Quit
	}
	if a.confirm != nil {
		a.runner.CancelConfirm()
		a.confirm = nil
		return nil
	}
	a.pluginErr = ""
	a.runner.Back()
	return nil
}

func (a *App) handleEnter() tea.Cmd {
	if a.pluginMode {
		return a.handlePluginEnter()
	}
	if len(a.results) == 0 {
		return nil
	}
	c := a.results[a.selectedIdx]
	if c.Item.Kind == models.KindPlugin {
		if m, ok := a.registry.Get(c.Item.PluginID); ok {
			a.recordSelection(c.Item)
			a.input.SetValue("")
			a.enterPlugin(m)
		}
		return nil
	}
	return a.launch(c.Item)
}

func (a *App) handlePluginEnter() tea.Cmd {
	if a.confirm != nil {
		action := *a.confirm
		a.confirm = nil
		sel := a.currentPluginResultID()
		a.runner.Action(action.ID, sel)
		return nil
	}

	switch a.pluginView {
	case viewForm:
		if a.form == nil {
			return nil
		}
		if !a.form.done() {
			a.form.cycle(true)
			return nil
		}
		values, err := a.form.values()
		if err != nil {
			a.message = err.Error()
			return nil
		}
		a.runner.SubmitForm(values)
		return nil

	case viewPrompt:
		a.runner.Submit(a.input.Value())
		return nil
	}

	// Submit-mode Enter searches the typed text, unless the user has moved
	// the selection off the top row: that declares intent to pick a result.
	if a.runner.InputMode() == plugin.InputSubmit && a.input.Value() != "" &&
		(a.pluginIdx == 0 || a.currentPluginResultID() == "") {
		a.runner.Submit(a.input.Value())
		return nil
	}
	if id := a.currentPluginResultID(); id != "" {
		a.runner.Select(id)
	}
	return nil
}

func (a *App) triggerPluginAction(idx int) tea.Cmd {
	if idx >= len(a.pluginActions) {
		return nil
	}
	a.runner.Action(a.pluginActions[idx].ID, a.currentPluginResultID())
	return nil
}

func (a *App) handlePluginEvent(e plugin.Event) tea.Cmd {
	switch e := e.(type) {
	case plugin.ResultsEvent:
		prevID := ""
		if e.Poll {
			prevID = a.currentPluginResultID()
		}
		a.pluginView = viewResults
		a.pluginResults = e.Results
		a.pluginActions = e.PluginActions
		a.pluginErr = ""
		if e.ClearInput {
			a.input.SetValue("")
		}
		if e.Placeholder != "" {
			a.input.Placeholder = e.Placeholder
		}
		if e.Poll && prevID != "" {
			// Poll refreshes follow the selected item by id; when the item
			// is gone the prior row is kept, clamped to the new length.
			idx := -1
			for i, r := range e.Results {
				if r.ID == prevID {
					idx = i
					break
				}
			}
			switch {
			case idx >= 0:
				a.pluginIdx = idx
			case len(e.Results) == 0:
				a.pluginIdx = 0
			default:
				a.pluginIdx = clamp(a.pluginIdx, 0, len(e.Results)-1)
			}
		} else {
			a.pluginIdx = 0
		}

	case plugin.CardEvent:
		a.pluginView = viewCard
		a.card = e.Card
		a.pluginErr = ""

	case plugin.FormEvent:
		a.pluginView = viewForm
		a.form = newFormModel(e.Form)
		a.pluginErr = ""
		return a.form.focusCmd()

	case plugin.PromptEvent:
		a.pluginView = viewPrompt
		a.prompt = e.Prompt
		a.input.SetValue("")
		if e.Prompt.Placeholder != "" {
			a.input.Placeholder = e.Prompt.Placeholder
		}
		a.pluginErr = ""

	case plugin.ImageBrowserEvent:
		a.pluginView = viewImages
		a.images = e.ImageBrowser
		a.pluginErr = ""

	case plugin.ConfirmEvent:
		action := e.Action
		a.confirm = &action

	case plugin.ExecutedEvent:
		if e.Notify != "" {
			a.message = e.Notify
		}

	case plugin.ErrorEvent:
		a.pluginErr = e.Message

	case plugin.ExitedEvent:
		a.leavePlugin()
		return a.runSearch(a.input.Value())

	case plugin.ClosedEvent:
		return tea.Quit
	}
	return nil
}

func (a *App) enterPlugin(m plugin.Manifest) {
	a.pluginMode = true
	a.pluginName = m.Name
	a.pluginView = viewResults
	a.pluginResults = nil
	a.pluginActions = nil
	a.pluginIdx = 0
	a.confirm = nil
	a.pluginErr = ""
	if m.Placeholder != "" {
		a.input.Placeholder = m.Placeholder
	}
	a.runner.Enter(m)
}

func (a *App) leavePlugin() {
	a.pluginMode = false
	a.pluginName = ""
	a.pluginView = ""
	a.pluginResults = nil
	a.pluginActions = nil
	a.confirm = nil
	a.form = nil
	a.pluginErr = ""
	a.input.Placeholder = "Search apps, plugins, =math, >shell ..."
	a.input.SetValue("")
	a.searchGen++
}

func (a *App) moveSelection(delta int) {
	if a.pluginMode {
		if a.pluginView != viewResults || len(a.pluginResults) == 0 {
			return
		}
		a.pluginIdx = clamp(a.pluginIdx+delta, 0, len(a.pluginResults)-1)
		return
	}
	if len(a.results) == 0 {
		return
	}
	a.selectedIdx = clamp(a.selectedIdx+delta, 0, len(a.results)-1)
}

func (a *App) currentPluginResultID() string {
	if a.pluginView != viewResults || a.pluginIdx >= len(a.pluginResults) {
		return ""
	}
	return a.pluginResults[a.pluginIdx].ID
}

// matchTrigger reports whether the input is a plugin trigger word followed by
// a space, returning the manifest and the remainder of the input.
func (a *App) matchTrigger(value string) (plugin.Manifest, string, bool) {
	word, rest, found := strings.Cut(value, " ")
	if !found {
		return plugin.Manifest{}, "", false
	}
	m, ok := a.registry.ByTrigger(word)
	if !ok {
		return plugin.Manifest{}, "", false
	}
	return m, rest, true
}

// launch starts the selected candidate detached and quits the launcher.
func (a *App) launch(item *models.SourceItem) tea.Cmd {
	argv := item.Exec
	if item.Kind == models.KindMath {
		// Math results copy the computed value.
		argv = []string{"wl-copy", strings.TrimPrefix(item.Name, "= ")}
	}
	term := strings.TrimSpace(a.input.Value())
	it := *item
	return func() tea.Msg {
		if a.history != nil {
			// A failed write must not block the launch itself.
			if err := a.history.RecordSelection(it.ID, it.Kind, term, time.Now()); err != nil {
				log.Printf("TUI: record selection %s: %v", it.ID, err)
			}
		}
		if len(argv) == 0 {
			return launchedMsg{}
		}
		if err := a.spawner.SpawnDetached(argv); err != nil {
			return launchedMsg{err: err}
		}
		return launchedMsg{}
	}
}

func (a *App) recordSelection(item *models.SourceItem) {
	if a.history == nil {
		return
	}
	term := strings.TrimSpace(a.input.Value())
	if err := a.history.RecordSelection(item.ID, item.Kind, term, time.Now()); err != nil {
		a.message = "Error: " + err.Error()
	}
}

func (a *App) runSearch(query string) tea.Cmd {
	gen := a.searchGen
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return rankedMsg{gen: gen, results: a.pipeline.Query(ctx, query)}
	}
}

func (a *App) loadSuggestions() tea.Cmd {
	if a.history == nil {
		return nil
	}
	return func() tea.Msg {
		items, err := a.history.Snapshot()
		if err != nil {
			return suggestionsMsg{byID: map[string]stats.Suggestion{}}
		}
		logged, err := a.history.Samples(500)
		if err != nil {
			return suggestionsMsg{byID: map[string]stats.Suggestion{}}
		}
		// Samples come back newest first.
		lastSelected := ""
		if len(logged) > 0 {
			lastSelected = logged[0].ItemID
		}
		samples := make([]stats.UsageSample, len(logged))
		for i, s := range logged {
			samples[i] = stats.UsageSample{ID: s.ItemID, Time: s.At, Prev: s.PrevItemID}
		}
		byID := make(map[string]stats.Suggestion)
		for _, s := range stats.Suggest(items, samples, time.Now(), lastSelected) {
			byID[s.ID] = s
		}
		return suggestionsMsg{byID: byID}
	}
}

// waitEvent pumps one runner event into the bubbletea loop.
func (a *App) waitEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-a.runner.Events()
		if !ok {
			return nil
		}
		return pluginEventMsg{event: e}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type searchDebouncedMsg struct {
	gen int
}

type rankedMsg struct {
	gen     int
	results []models.RankedCandidate
}

type suggestionsMsg struct {
	byID map[string]stats.Suggestion
}

type pluginEventMsg struct {
	event plugin.Event
}

type launchedMsg struct {
	err error
}
