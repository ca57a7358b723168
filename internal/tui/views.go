package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"darter/internal/models"
)

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	header := lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render("darter")
	if a.pluginMode {
		header += "  " + verbStyle.Render("["+a.pluginName+"]")
		if depth := a.runner.NavDepth(); depth > 0 {
			header += descStyle.Render(fmt.Sprintf(" %s", strings.Repeat("›", depth)))
		}
	}
	b.WriteString(header + "\n")

	if a.pluginMode && a.pluginView == viewForm {
		// Forms own the keyboard; the query input is hidden.
		if a.form != nil {
			b.WriteString(a.form.view())
		}
	} else {
		b.WriteString(inputBoxStyle.Render(a.input.View()) + "\n")
		if a.pluginMode {
			b.WriteString(a.renderPluginView())
		} else {
			b.WriteString(a.renderResults())
		}
	}

	if a.confirm != nil {
		warn := lipgloss.NewStyle().Foreground(warningColor).Bold(true)
		b.WriteString("\n" + warn.Render(fmt.Sprintf("  %s? Enter to confirm, Esc to cancel", a.confirm.Name)) + "\n")
	}

	if a.pluginErr != "" {
		b.WriteString("\n" + errorStyle.Render("  ✗ "+a.pluginErr) + "\n")
	}
	if a.message != "" {
		style := notifyStyle
		if strings.HasPrefix(a.message, "Error") {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render("  "+a.message) + "\n")
	}

	b.WriteString("\n" + a.renderStatusBar())
	return b.String()
}

func (a *App) renderResults() string {
	if len(a.results) == 0 {
		if a.input.Value() == "" {
			return helpStyle.Render("\n  No history yet. Start typing to search.\n")
		}
		return helpStyle.Render("\n  No matches.\n")
	}

	var lines []string
	for i, c := range a.results {
		name := c.Item.Name
		if s, ok := a.suggestions[c.Item.ID]; ok && s.High && a.input.Value() == "" {
			name = suggestStyle.Render("★ ") + name
		}
		line := name
		if c.Item.Description != "" {
			line += "  " + descStyle.Render(c.Item.Description)
		}
		if i == a.selectedIdx {
			verb := c.Item.Verb
			if verb == "" {
				verb = "Open"
			}
			lines = append(lines, selectedStyle.Render("▶ "+line+"  "+verb))
		} else {
			lines = append(lines, resultItemStyle.Render("  "+line))
		}
	}
	return "\n" + strings.Join(lines, "\n") + "\n"
}

func (a *App) renderPluginView() string {
	switch a.pluginView {
	case viewCard:
		return a.renderCard()
	case viewPrompt:
		return "\n  " + a.prompt.Text + "\n"
	case viewImages:
		return a.renderImageBrowser()
	default:
		return a.renderPluginResults()
	}
}

func (a *App) renderPluginResults() string {
	if len(a.pluginResults) == 0 {
		return helpStyle.Render("\n  No results.\n")
	}

	var lines []string
	for i, r := range a.pluginResults {
		line := r.Name
		if r.Description != "" {
			line += "  " + descStyle.Render(r.Description)
		}
		if i == a.pluginIdx {
			verb := r.Verb
			if verb == "" {
				verb = "Open"
			}
			lines = append(lines, selectedStyle.Render("▶ "+line+"  "+verb))
		} else {
			lines = append(lines, resultItemStyle.Render("  "+line))
		}
	}
	out := "\n" + strings.Join(lines, "\n") + "\n"

	if len(a.pluginActions) > 0 {
		var actions []string
		for i, act := range a.pluginActions {
			actions = append(actions, fmt.Sprintf("Alt+%d:%s", i+1, act.Name))
		}
		out += "\n" + helpStyle.Render("  "+strings.Join(actions, " | ")) + "\n"
	}
	return out
}

func (a *App) renderCard() string {
	title := lipgloss.NewStyle().Bold(true).Render(a.card.Title)
	body := a.card.Content
	width := a.width - 6
	if width < 20 {
		width = 72
	}
	return "\n" + panelStyle.Width(width).Render(title+"\n\n"+body) + "\n"
}

func (a *App) renderImageBrowser() string {
	title := a.images.Title
	if title == "" {
		title = a.images.Directory
	}
	var b strings.Builder
	b.WriteString("\n  " + lipgloss.NewStyle().Bold(true).Render(title) + "\n")
	b.WriteString(descStyle.Render("  Directory: "+a.images.Directory) + "\n")
	if a.images.EnableOCR {
		b.WriteString(descStyle.Render("  OCR search enabled") + "\n")
	}
	// Image previews need a graphical surface; the terminal shows metadata.
	return b.String()
}

func (a *App) renderStatusBar() string {
	var status string
	switch {
	case a.pluginMode && a.pluginView == viewForm:
		status = " Tab:field | Enter:submit | Esc:back"
	case a.pluginMode:
		status = " ↑↓:nav | Enter:select | Esc:back | Ctrl+C:quit"
	default:
		n := len(a.results)
		kinds := countKinds(a.results)
		status = fmt.Sprintf(" %d results%s | ↑↓:nav | Enter:open | Esc:quit", n, kinds)
	}
	return helpStyle.Render(status)
}

func countKinds(results []models.RankedCandidate) string {
	plugins := 0
	for _, c := range results {
		if c.Item.Kind == models.KindPlugin {
			plugins++
		}
	}
	if plugins == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d plugins)", plugins)
}
