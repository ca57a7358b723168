// Package intent detects queries that are really calculations, URLs or
// shell commands, and surfaces them as top-tier candidates.
package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"darter/internal/models"
)

// Evaluator computes the value of a detected math expression. The expression
// grammar is the evaluator's business; detection only decides whether to ask.
type Evaluator interface {
	Evaluate(expr string) (float64, error)
}

var (
	mathChars = regexp.MustCompile(`^[0-9\s.+\-*/%()^]+$`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
	hasOp     = regexp.MustCompile(`[+\-*/%^]`)
	bareHost  = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-.]*\.[a-zA-Z]{2,}(/\S*)?$`)
)

// Detector turns raw queries into intent candidates.
type Detector struct {
	eval Evaluator
}

// NewDetector creates a Detector with the given evaluator; nil disables the
// math intent.
func NewDetector(eval Evaluator) *Detector {
	return &Detector{eval: eval}
}

// Detect returns intent candidates for the query, possibly none.
func (d *Detector) Detect(query string) []models.SourceItem {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}

	var items []models.SourceItem
	if item, ok := d.detectMath(q); ok {
		items = append(items, item)
	}
	if item, ok := detectURL(q); ok {
		items = append(items, item)
	}
	if item, ok := detectShell(q); ok {
		items = append(items, item)
	}
	return items
}

// detectMath treats a query as an expression when it is forced with a
// leading "=" or looks arithmetic (digits plus at least one operator).
func (d *Detector) detectMath(q string) (models.SourceItem, bool) {
	if d.eval == nil {
		return models.SourceItem{}, false
	}
	expr := q
	forced := false
	if strings.HasPrefix(expr, "=") {
		expr = strings.TrimSpace(expr[1:])
		forced = true
	}
	if expr == "" {
		return models.SourceItem{}, false
	}
	if !forced {
		if !mathChars.MatchString(expr) || !hasDigit.MatchString(expr) || !hasOp.MatchString(expr) {
			return models.SourceItem{}, false
		}
	}
	value, err := d.eval.Evaluate(expr)
	if err != nil {
		return models.SourceItem{}, false
	}
	text := strconv.FormatFloat(value, 'f', -1, 64)
	return models.SourceItem{
		ID:          "math:" + expr,
		Kind:        models.KindMath,
		Name:        fmt.Sprintf("= %s", text),
		Description: expr,
		Verb:        "Copy",
	}, true
}

func detectURL(q string) (models.SourceItem, bool) {
	url := ""
	switch {
	case strings.HasPrefix(q, "http://"), strings.HasPrefix(q, "https://"):
		url = q
	case bareHost.MatchString(q):
		url = "https://" + q
	default:
		return models.SourceItem{}, false
	}
	return models.SourceItem{
		ID:   "url:" + url,
		Kind: models.KindURL,
		Name: url,
		Verb: "Open",
		Exec: []string{"xdg-open", url},
	}, true
}

func detectShell(q string) (models.SourceItem, bool) {
	cmd := ""
	switch {
	case strings.HasPrefix(q, ">"):
		cmd = strings.TrimSpace(q[1:])
	case strings.HasPrefix(q, "$ "):
		cmd = strings.TrimSpace(q[2:])
	default:
		return models.SourceItem{}, false
	}
	if cmd == "" {
		return models.SourceItem{}, false
	}
	return models.SourceItem{
		ID:   "shell:" + cmd,
		Kind: models.KindShellCommand,
		Name: cmd,
		Verb: "Run",
		Exec: []string{"sh", "-c", cmd},
	}, true
}
