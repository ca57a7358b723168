package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"darter/internal/plugin"
)

// formModel renders a handler-described form, one text input per field.
// Select fields cycle their options with left/right instead of typing.
type formModel struct {
	form      plugin.Form
	inputs    []textinput.Model
	optionIdx []int
	focus     int
}

func newFormModel(f plugin.Form) *formModel {
	m := &formModel{
		form:      f,
		inputs:    make([]textinput.Model, len(f.Fields)),
		optionIdx: make([]int, len(f.Fields)),
	}
	for i, field := range f.Fields {
		ti := textinput.New()
		ti.Placeholder = field.Placeholder
		ti.SetValue(field.Value)
		ti.CharLimit = 512
		ti.Width = 60
		m.inputs[i] = ti

		if len(field.Options) > 0 {
			m.optionIdx[i] = 0
			for j, opt := range field.Options {
				if opt == field.Value {
					m.optionIdx[i] = j
					break
				}
			}
		}
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m *formModel) focusCmd() tea.Cmd {
	return textinput.Blink
}

func (m *formModel) isSelect(i int) bool {
	return len(m.form.Fields[i].Options) > 0
}

// cycle moves focus to the next (or previous) field.
func (m *formModel) cycle(forward bool) {
	if len(m.inputs) == 0 {
		return
	}
	m.inputs[m.focus].Blur()
	if forward {
		m.focus = (m.focus + 1) % len(m.inputs)
	} else {
		m.focus = (m.focus - 1 + len(m.inputs)) % len(m.inputs)
	}
	m.inputs[m.focus].Focus()
}

// done reports whether focus sits on the last field, meaning Enter submits.
func (m *formModel) done() bool {
	return len(m.inputs) == 0 || m.focus == len(m.inputs)-1
}

func (m *formModel) update(msg tea.KeyMsg) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	if m.isSelect(m.focus) {
		opts := m.form.Fields[m.focus].Options
		switch msg.String() {
		case "left":
			m.optionIdx[m.focus] = (m.optionIdx[m.focus] - 1 + len(opts)) % len(opts)
		case "right":
			m.optionIdx[m.focus] = (m.optionIdx[m.focus] + 1) % len(opts)
		}
		return nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

// values collects the field values, enforcing required fields.
func (m *formModel) values() (map[string]string, error) {
	out := make(map[string]string, len(m.form.Fields))
	for i, field := range m.form.Fields {
		var v string
		if m.isSelect(i) {
			v = field.Options[m.optionIdx[i]]
		} else {
			v = strings.TrimSpace(m.inputs[i].Value())
		}
		if field.Required && v == "" {
			return nil, fmt.Errorf("%s is required", field.Label)
		}
		out[field.ID] = v
	}
	return out, nil
}

func (m *formModel) view() string {
	var b strings.Builder
	b.WriteString("  " + lipgloss.NewStyle().Bold(true).Render(m.form.Title) + "\n\n")

	for i, field := range m.form.Fields {
		label := field.Label
		if field.Required {
			label += " *"
		}
		marker := "  "
		if i == m.focus {
			marker = verbStyle.Render("> ")
		}
		b.WriteString(fmt.Sprintf("  %s%s\n", marker, label))
		if m.isSelect(i) {
			opts := field.Options
			sel := opts[m.optionIdx[i]]
			b.WriteString(fmt.Sprintf("    %s %s %s\n", descStyle.Render("<"), sel, descStyle.Render(">")))
		} else {
			b.WriteString("    " + m.inputs[i].View() + "\n")
		}
	}

	submit := m.form.SubmitLabel
	if submit == "" {
		submit = "Submit"
	}
	b.WriteString("\n  " + helpStyle.Render(fmt.Sprintf("Tab:next field | Enter on last field: %s | Esc:back", submit)) + "\n")
	return b.String()
}
