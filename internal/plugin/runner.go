package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"darter/internal/execx"
	"darter/internal/models"
	"github.com/google/uuid"
)

// HistoryRecorder is the slice of the history store the runner needs when an
// execute response asks for a history entry.
type HistoryRecorder interface {
	RecordSelection(id string, kind models.ItemKind, term string, now time.Time) error
}

const (
	// DefaultDebounce coalesces realtime keystrokes before spawning a
	// handler. Deliberately longer than the built-in app-search debounce:
	// every plugin search costs a process.
	DefaultDebounce = 80 * time.Millisecond

	// DefaultTimeout is the wall-clock budget for one handler process.
	DefaultTimeout = 10 * time.Second

	eventBuffer = 32
)

// Runner drives the handler protocol for at most one active plugin session.
// All user input funnels through it while a plugin is open; it owns
// debouncing, invocation supersession, polling and confirmation state.
type Runner struct {
	spawner execx.Spawner
	history HistoryRecorder
	events  chan Event

	Debounce time.Duration
	Timeout  time.Duration

	mu             sync.Mutex
	session        *Session
	cancelInflight context.CancelFunc
	debounceTimer  *time.Timer
	pollTimer      *time.Timer
	now            func() time.Time
}

// NewRunner creates a Runner. history may be nil.
func NewRunner(spawner execx.Spawner, history HistoryRecorder) *Runner {
	return &Runner{
		spawner:  spawner,
		history:  history,
		events:   make(chan Event, eventBuffer),
		Debounce: DefaultDebounce,
		Timeout:  DefaultTimeout,
		now:      time.Now,
	}
}

// Events is the stream of typed state changes for the UI to render.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Active reports whether a plugin session is open.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// InputMode returns the session's current input mode, or "" when inactive.
func (r *Runner) InputMode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return ""
	}
	return r.session.InputMode
}

// Placeholder returns the session's current placeholder text.
func (r *Runner) Placeholder() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return ""
	}
	return r.session.Placeholder
}

// NavDepth reports the drill-down depth, 0 at the initial step.
func (r *Runner) NavDepth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return 0
	}
	return r.session.NavDepth()
}

// PendingConfirm returns the toolbar action id awaiting confirmation, if any.
func (r *Runner) PendingConfirm() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return ""
	}
	return r.session.pendingConfirm
}

// Enter opens a session for the plugin and issues the initial step. An
// already-open session is torn down first.
func (r *Runner) Enter(m Manifest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		r.teardownLocked()
	}
	r.session = newSession(m)
	r.dispatchLocked(StepInitial, nil)
}

// Input feeds a keystroke-level query change. In realtime mode the search
// step is debounced; in submit mode the text is only remembered until Submit.
func (r *Runner) Input(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil {
		return
	}
	s.LastQuery = text
	if s.InputMode != InputRealtime {
		return
	}
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	r.debounceTimer = time.AfterFunc(r.Debounce, func() { r.debouncedSearch(text) })
}

func (r *Runner) debouncedSearch(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil || s.LastQuery != text {
		return // superseded while the debounce window was open
	}
	r.dispatchLocked(StepSearch, func(req *Request) { req.Query = text })
}

// Submit issues an explicit search, bypassing the debounce window.
func (r *Runner) Submit(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil {
		return
	}
	s.LastQuery = text
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	r.dispatchLocked(StepSearch, func(req *Request) { req.Query = text })
}

// Select dispatches the default action for a result.
func (r *Runner) Select(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return
	}
	r.dispatchLocked(StepAction, func(req *Request) {
		req.Selected = &SelectedRef{ID: id}
	})
}

// Action dispatches a named action, optionally on a selected result. A
// toolbar action carrying confirm requires a second call before it fires.
func (r *Runner) Action(actionID, selectedID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil {
		return
	}
	if a, ok := s.actions[actionID]; ok && a.Confirm && s.pendingConfirm != actionID {
		s.pendingConfirm = actionID
		r.emit(ConfirmEvent{Action: a})
		return
	}
	s.pendingConfirm = ""
	r.dispatchLocked(StepAction, func(req *Request) {
		req.Action = actionID
		if selectedID != "" {
			req.Selected = &SelectedRef{ID: selectedID}
		}
	})
}

// CancelConfirm discards a pending confirmation without side effects.
func (r *Runner) CancelConfirm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		r.session.pendingConfirm = ""
	}
}

// SubmitForm dispatches the form step with the entered values.
func (r *Runner) SubmitForm(values map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return
	}
	r.dispatchLocked(StepForm, func(req *Request) { req.FormData = values })
}

// Back pops one navigation level and restores the previous results snapshot
// without re-invoking the handler. At the initial step it exits the plugin.
func (r *Runner) Back() {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil {
		return
	}
	s.pendingConfirm = ""
	if snapshot := s.popNav(); snapshot != nil {
		r.emit(ResultsEvent{
			Results:     snapshot,
			Placeholder: s.Placeholder,
			InputMode:   s.InputMode,
			Restored:    true,
		})
		return
	}
	r.teardownLocked()
	r.emit(ExitedEvent{})
}

// Exit ends the session and returns the launcher to normal search mode.
func (r *Runner) Exit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return
	}
	r.teardownLocked()
	r.emit(ExitedEvent{})
}

// HardClose ends the session immediately, e.g. when the launcher window
// closes. No restore window: everything is cleaned up now.
func (r *Runner) HardClose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return
	}
	r.teardownLocked()
	r.emit(ClosedEvent{})
}

// dispatchLocked starts one protocol step. The invocation token makes "last
// request wins" explicit: a result may only be applied while its token is
// still the session's latest.
func (r *Runner) dispatchLocked(step string, mutate func(*Request)) {
	s := r.session
	if s == nil {
		return
	}
	if r.cancelInflight != nil {
		r.cancelInflight()
		r.cancelInflight = nil
	}
	token := uuid.New().String()
	s.invocation = token

	req := Request{Step: step, Session: s.Token, Context: s.LastContext}
	if mutate != nil {
		mutate(&req)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		r.emit(ErrorEvent{Message: "internal request encoding error"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancelInflight = cancel
	go r.invoke(ctx, token, step, s.Manifest.Argv(), payload)
}

func (r *Runner) invoke(ctx context.Context, token, step string, argv []string, payload []byte) {
	res, err := r.spawner.Spawn(ctx, argv, payload, r.Timeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil || s.invocation != token {
		// Superseded or torn down: drop the result, whatever it was.
		return
	}
	s.invocation = ""
	r.cancelInflight = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if errors.Is(err, execx.ErrTimeout) {
			r.emit(ErrorEvent{Message: fmt.Sprintf("%s did not respond in time", s.Manifest.Name)})
		} else {
			log.Printf("Plugin %s: spawn failed: %v", s.PluginID, err)
			r.emit(ErrorEvent{Message: fmt.Sprintf("%s could not be started", s.Manifest.Name)})
		}
		return
	}
	if res.ExitCode != 0 {
		log.Printf("Plugin %s: handler exited with status %d: %s", s.PluginID, res.ExitCode, res.Stderr)
		r.emit(ErrorEvent{Message: fmt.Sprintf("%s failed (status %d)", s.Manifest.Name, res.ExitCode)})
		return
	}

	resp, perr := ParseResponse(res.Stdout)
	if perr != nil {
		log.Printf("Plugin %s: %v", s.PluginID, perr)
		r.emit(ErrorEvent{Message: fmt.Sprintf("%s returned an invalid response", s.Manifest.Name)})
		return
	}
	r.applyLocked(step, resp)
}

// applyLocked reconciles an accepted handler response with session state.
func (r *Runner) applyLocked(step string, resp *Response) {
	s := r.session
	switch resp.Type {
	case "results":
		// Drill-downs (action-triggered) push the prior list for back
		// navigation; search, poll and initial replace in place.
		if step == StepAction {
			s.pushNav()
		}
		s.current = make([]Result, len(resp.Results))
		copy(s.current, resp.Results)
		if resp.Context != nil {
			s.LastContext = *resp.Context
		}
		if resp.Placeholder != "" {
			s.Placeholder = resp.Placeholder
		}
		if resp.InputMode != "" {
			s.InputMode = resp.InputMode
		}
		if resp.PollInterval != nil {
			s.PollInterval = time.Duration(*resp.PollInterval) * time.Millisecond
		}
		s.setActions(resp.PluginActions)
		r.emit(ResultsEvent{
			Results:       resp.Results,
			Placeholder:   s.Placeholder,
			ClearInput:    resp.ClearInput,
			PluginActions: resp.PluginActions,
			InputMode:     s.InputMode,
			Poll:          step == StepPoll,
		})
		r.schedulePollLocked()

	case "card":
		r.emit(CardEvent{Card: *resp.Card})
		r.schedulePollLocked()

	case "form":
		if resp.Context != nil {
			s.LastContext = *resp.Context
		}
		r.emit(FormEvent{Form: *resp.Form})

	case "imageBrowser":
		r.emit(ImageBrowserEvent{ImageBrowser: *resp.ImageBrowser})

	case "prompt":
		r.emit(PromptEvent{Prompt: *resp.Prompt})

	case "execute":
		r.applyExecuteLocked(resp.Execute)

	case "error":
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("%s reported an error", s.Manifest.Name)
		}
		r.emit(ErrorEvent{Message: msg})
	}
}

func (r *Runner) applyExecuteLocked(ex *Execute) {
	s := r.session
	if len(ex.Command) > 0 {
		// Detached from the protocol pipe; the child's exit status must
		// never block the UI thread.
		if err := r.spawner.SpawnDetached(ex.Command); err != nil {
			log.Printf("Plugin %s: detached spawn failed: %v", s.PluginID, err)
			r.emit(ErrorEvent{Message: fmt.Sprintf("%s: command failed to start", s.Manifest.Name)})
			return
		}
	}
	if ex.Name != "" && r.history != nil {
		id := s.PluginID + ":" + ex.Name
		if err := r.history.RecordSelection(id, models.KindPlugin, s.LastQuery, r.now()); err != nil {
			log.Printf("History: record %s: %v", id, err)
		}
	}
	if ex.Close {
		r.teardownLocked()
		r.emit(ClosedEvent{Notify: ex.Notify})
		return
	}
	r.emit(ExecutedEvent{Notify: ex.Notify})
}

// schedulePollLocked arms the poll timer when the session wants polling.
func (r *Runner) schedulePollLocked() {
	if r.pollTimer != nil {
		r.pollTimer.Stop()
		r.pollTimer = nil
	}
	s := r.session
	if s == nil || s.PollInterval <= 0 {
		return
	}
	token := s.Token
	r.pollTimer = time.AfterFunc(s.PollInterval, func() { r.pollTick(token) })
}

func (r *Runner) pollTick(sessionToken string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil || s.Token != sessionToken {
		return // session was torn down or replaced since the timer was set
	}
	if s.invocation != "" {
		// A user-driven step is in flight; it wins, try again next tick.
		r.schedulePollLocked()
		return
	}
	r.dispatchLocked(StepPoll, func(req *Request) { req.Query = s.LastQuery })
}

// teardownLocked destroys the session and makes sure no orphaned process can
// write into it: the in-flight invocation is cancelled and its token
// invalidated, and the timers are stopped.
func (r *Runner) teardownLocked() {
	if r.cancelInflight != nil {
		r.cancelInflight()
		r.cancelInflight = nil
	}
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
		r.debounceTimer = nil
	}
	if r.pollTimer != nil {
		r.pollTimer.Stop()
		r.pollTimer = nil
	}
	r.session = nil
}

// emit delivers an event without ever blocking the protocol path. The UI is
// expected to drain promptly; a full buffer drops the event with a log line.
func (r *Runner) emit(e Event) {
	select {
	case r.events <- e:
	default:
		log.Printf("Plugin: event buffer full, dropping %T", e)
	}
}
