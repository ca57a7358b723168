package plugin

// Event is a typed state-change notification from the Runner to the UI.
type Event interface{ pluginEvent() }

// ResultsEvent replaces the displayed list. Poll marks a poll refresh: the
// UI must restore its selection by item id, not index.
type ResultsEvent struct {
	Results       []Result
	Placeholder   string
	ClearInput    bool
	PluginActions []PluginAction
	InputMode     string
	Poll          bool
	Restored      bool // produced by back-navigation, no handler involved
}

// CardEvent replaces the view with a content card.
type CardEvent struct{ Card Card }

// FormEvent replaces the view with an input form.
type FormEvent struct{ Form Form }

// ImageBrowserEvent replaces the view with the image browser.
type ImageBrowserEvent struct{ ImageBrowser ImageBrowser }

// PromptEvent replaces the view with a free-text prompt.
type PromptEvent struct{ Prompt Prompt }

// ConfirmEvent asks the user to confirm a destructive toolbar action.
type ConfirmEvent struct{ Action PluginAction }

// ExecutedEvent reports a detached command was started; the session stays.
type ExecutedEvent struct{ Notify string }

// ErrorEvent surfaces a handler failure inline; session and navigation
// history stay intact.
type ErrorEvent struct{ Message string }

// ExitedEvent reports the plugin session ended and the launcher returns to
// normal search mode.
type ExitedEvent struct{}

// ClosedEvent reports a hard close: session destroyed, launcher closes.
type ClosedEvent struct{ Notify string }

func (ResultsEvent) pluginEvent()      {}
func (CardEvent) pluginEvent()         {}
func (FormEvent) pluginEvent()         {}
func (ImageBrowserEvent) pluginEvent() {}
func (PromptEvent) pluginEvent()       {}
func (ConfirmEvent) pluginEvent()      {}
func (ExecutedEvent) pluginEvent()     {}
func (ErrorEvent) pluginEvent()        {}
func (ExitedEvent) pluginEvent()       {}
func (ClosedEvent) pluginEvent()       {}
