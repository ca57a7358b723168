// Package plugin implements the external handler protocol: manifests,
// request/response envelopes, per-plugin session state and the protocol
// runner that drives one short-lived handler process per interaction step.
package plugin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kballard/go-shellquote"
)

// Protocol steps. Each step spawns one handler process which reads a Request
// from stdin and writes exactly one Response to stdout.
const (
	StepInitial = "initial"
	StepSearch  = "search"
	StepAction  = "action"
	StepPoll    = "poll"
	StepForm    = "form"
)

// Input modes for the search box while a plugin is active.
const (
	InputRealtime = "realtime"
	InputSubmit   = "submit"
)

// ErrProtocol indicates a handler wrote something that is not a valid
// response envelope.
var ErrProtocol = errors.New("invalid handler response")

// Request is the JSON sent to a handler on stdin. Exactly one of Query,
// Selected, Action or FormData is meaningful per step.
type Request struct {
	Step     string            `json:"step"`
	Query    string            `json:"query,omitempty"`
	Selected *SelectedRef      `json:"selected,omitempty"`
	Action   string            `json:"action,omitempty"`
	FormData map[string]string `json:"formData,omitempty"`
	Context  string            `json:"context,omitempty"`
	Session  string            `json:"session"`
}

// SelectedRef identifies the result a step refers to.
type SelectedRef struct {
	ID string `json:"id"`
}

// Result is one entry of a results response.
type Result struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	Thumbnail   string         `json:"thumbnail,omitempty"`
	Verb        string         `json:"verb,omitempty"`
	Actions     []ResultAction `json:"actions,omitempty"`
}

// ResultAction is a per-result action shown alongside an entry.
type ResultAction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// PluginAction is a toolbar-level action. Actions carrying Confirm require a
// second explicit confirmation before they are dispatched.
type PluginAction struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon,omitempty"`
	Confirm bool   `json:"confirm,omitempty"`
}

// Card is a read-only content pane.
type Card struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Markdown bool   `json:"markdown,omitempty"`
}

// Form describes an input form rendered by the launcher.
type Form struct {
	Title       string      `json:"title"`
	SubmitLabel string      `json:"submitLabel,omitempty"`
	Fields      []FormField `json:"fields"`
}

// FormField is one form input.
type FormField struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Label       string   `json:"label"`
	Required    bool     `json:"required,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Value       string   `json:"value,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// ImageBrowser asks the launcher to open its image browser on a directory.
type ImageBrowser struct {
	Directory string         `json:"directory"`
	Title     string         `json:"title,omitempty"`
	Actions   []ResultAction `json:"actions,omitempty"`
	EnableOCR bool           `json:"enableOcr,omitempty"`
}

// Prompt replaces the view with a free-text prompt.
type Prompt struct {
	Text        string `json:"text"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Execute asks the launcher to run a command detached from the protocol pipe.
type Execute struct {
	Command   CommandLine `json:"command"`
	Notify    string      `json:"notify,omitempty"`
	Close     bool        `json:"close,omitempty"`
	Name      string      `json:"name,omitempty"`
	Icon      string      `json:"icon,omitempty"`
	Thumbnail string      `json:"thumbnail,omitempty"`
}

// CommandLine accepts either a JSON array of arguments or a single
// shell-quoted string.
type CommandLine []string

func (c *CommandLine) UnmarshalJSON(data []byte) error {
	var argv []string
	if err := json.Unmarshal(data, &argv); err == nil {
		*c = argv
		return nil
	}
	var line string
	if err := json.Unmarshal(data, &line); err != nil {
		return fmt.Errorf("command must be a string or array: %w", err)
	}
	argv, err := shellquote.Split(line)
	if err != nil {
		return fmt.Errorf("split command line: %w", err)
	}
	*c = argv
	return nil
}

// Response is the tagged union a handler writes to stdout, keyed by Type.
type Response struct {
	Type string `json:"type"`

	// type == "results"
	Results       []Result       `json:"results"`
	Placeholder   string         `json:"placeholder,omitempty"`
	ClearInput    bool           `json:"clearInput,omitempty"`
	Context       *string        `json:"context,omitempty"`
	PluginActions []PluginAction `json:"pluginActions,omitempty"`
	InputMode     string         `json:"inputMode,omitempty"`
	PollInterval  *int           `json:"pollInterval,omitempty"` // milliseconds; 0 disables

	Card         *Card         `json:"card,omitempty"`
	Form         *Form         `json:"form,omitempty"`
	ImageBrowser *ImageBrowser `json:"imageBrowser,omitempty"`
	Prompt       *Prompt       `json:"prompt,omitempty"`
	Execute      *Execute      `json:"execute,omitempty"`

	// type == "error"
	Message string `json:"message,omitempty"`
}

// ParseResponse decodes and validates a handler's stdout. Unknown type tags
// are rejected rather than silently ignored.
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	switch resp.Type {
	case "results":
		// An empty result list is valid.
	case "card":
		if resp.Card == nil {
			return nil, fmt.Errorf("%w: card response without card payload", ErrProtocol)
		}
	case "form":
		if resp.Form == nil {
			return nil, fmt.Errorf("%w: form response without form payload", ErrProtocol)
		}
	case "imageBrowser":
		if resp.ImageBrowser == nil {
			return nil, fmt.Errorf("%w: imageBrowser response without payload", ErrProtocol)
		}
	case "prompt":
		if resp.Prompt == nil {
			return nil, fmt.Errorf("%w: prompt response without payload", ErrProtocol)
		}
	case "execute":
		if resp.Execute == nil {
			return nil, fmt.Errorf("%w: execute response without payload", ErrProtocol)
		}
	case "error":
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrProtocol)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrProtocol, resp.Type)
	}
	return &resp, nil
}
