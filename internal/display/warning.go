package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Items      []string // Affected tools or checks (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the formatted warning to out
func (w Warning) Display(out io.Writer) {
	yellow := color.New(color.FgYellow)
	bold := color.New(color.FgYellow, color.Bold)

	fmt.Fprintln(out)
	bold.Fprintf(out, "⚠️  Warning: %s\n", w.Title)

	if w.Message != "" {
		yellow.Fprintf(out, "    %s\n", w.Message)
	}

	for i, item := range w.Items {
		yellow.Fprintf(out, "      %d. %s\n", i+1, item)
	}

	if w.Suggestion != "" {
		yellow.Fprintf(out, "    Suggestion:\n")
		yellow.Fprintf(out, "    %s\n", w.Suggestion)
	}
}

// MissingDependencies builds the warning shown when dependency probes failed
func MissingDependencies(missing []string) Warning {
	noun, pronoun := "tool was", "it"
	if len(missing) != 1 {
		noun, pronoun = "tools were", "them"
	}
	return Warning{
		Title:      "Missing Dependencies",
		Message:    fmt.Sprintf("%d required %s not found; checks that use %s will likely fail", len(missing), noun, pronoun),
		Items:      missing,
		Suggestion: "pip install " + strings.Join(missing, " "),
	}
}

// FailedChecks builds the warning shown when strict mode turns failures into a non-zero exit
func FailedChecks(checks []string) Warning {
	return Warning{
		Title:   "Strict Mode",
		Message: fmt.Sprintf("%d check(s) failed", len(checks)),
		Items:   checks,
	}
}
