package plugin

import (
	"time"

	"github.com/google/uuid"
)

// Session is the stateful context spanning the steps of one plugin
// interaction. It is owned by the Runner and destroyed on exit, hard close,
// or a close:true execute response.
type Session struct {
	PluginID string
	Token    string
	Manifest Manifest

	// navStack holds prior results-step snapshots for back navigation.
	// Strict LIFO; it is never popped below the plugin's initial step.
	navStack [][]Result
	current  []Result

	InputMode    string
	Placeholder  string
	LastContext  string
	PollInterval time.Duration
	LastQuery    string

	// pendingConfirm is the toolbar action awaiting a second confirmation.
	pendingConfirm string

	// actions are the current toolbar actions, by id.
	actions map[string]PluginAction

	// invocation is the token of the only in-flight step whose result may
	// still be applied; anything else is stale and dropped.
	invocation string
}

func newSession(m Manifest) *Session {
	s := &Session{
		PluginID:    m.ID,
		Token:       uuid.New().String(),
		Manifest:    m,
		InputMode:   m.InputMode,
		Placeholder: m.Placeholder,
		actions:     make(map[string]PluginAction),
	}
	if m.PollInterval > 0 {
		s.PollInterval = time.Duration(m.PollInterval) * time.Millisecond
	}
	return s
}

// pushNav snapshots the current list before a drill-down replaces it.
func (s *Session) pushNav() {
	if s.current == nil {
		return
	}
	snapshot := make([]Result, len(s.current))
	copy(snapshot, s.current)
	s.navStack = append(s.navStack, snapshot)
}

// popNav restores the previous results snapshot. Returns nil when the stack
// is already at the initial step.
func (s *Session) popNav() []Result {
	if len(s.navStack) == 0 {
		return nil
	}
	top := s.navStack[len(s.navStack)-1]
	s.navStack = s.navStack[:len(s.navStack)-1]
	s.current = top
	return top
}

// NavDepth reports how many drill-down levels are on the stack.
func (s *Session) NavDepth() int {
	return len(s.navStack)
}

func (s *Session) setActions(actions []PluginAction) {
	s.actions = make(map[string]PluginAction, len(actions))
	for _, a := range actions {
		s.actions[a.ID] = a
	}
}
