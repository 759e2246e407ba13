package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Summary is the overall status read back from a generated report.
type Summary struct {
	Path        string
	Timestamp   string
	SuccessRate string // e.g. "75.0% (3/4)"; empty when no tests were run
	Passed      int
	Total       int
	Status      string
}

// ReadSummary parses the report at path and extracts its Overall Status section.
func ReadSummary(path string) (*Summary, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	summary, err := ParseSummary(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	summary.Path = path
	return summary, nil
}

// ParseSummary walks the markdown AST of a report. The Timestamp line comes
// from the header paragraph; rate and status come from the list that follows
// the "Overall Status" heading.
func ParseSummary(source []byte) (*Summary, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	summary := &Summary{}
	foundSection := false

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Paragraph:
			if summary.Timestamp != "" {
				continue
			}
			for _, line := range strings.Split(plainText(n, source), "\n") {
				if ts, ok := strings.CutPrefix(strings.TrimSpace(line), "Timestamp:"); ok {
					summary.Timestamp = strings.TrimSpace(ts)
				}
			}
		case *ast.Heading:
			if n.Level == 2 && strings.Contains(plainText(n, source), "Overall Status") {
				foundSection = true
				list, ok := n.NextSibling().(*ast.List)
				if !ok {
					return nil, fmt.Errorf("overall status section has no entries")
				}
				readStatusList(list, source, summary)
			}
		}
	}

	if !foundSection {
		return nil, fmt.Errorf("no overall status section found")
	}
	if summary.Status == "" {
		return nil, fmt.Errorf("overall status section has no status line")
	}
	return summary, nil
}

func readStatusList(list *ast.List, source []byte, summary *Summary) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		key, value, ok := strings.Cut(plainText(item, source), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Success Rate":
			summary.SuccessRate = value
			var pct float64
			fmt.Sscanf(value, "%f%% (%d/%d)", &pct, &summary.Passed, &summary.Total)
		case "Status":
			summary.Status = value
		}
	}
}

// plainText concatenates the text segments under n; soft and hard line
// breaks become newlines.
func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := child.(type) {
		case *ast.Text:
			buf.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// LatestReport returns the most recently written report in dir. Reserved but
// still empty report files are ignored.
func LatestReport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "comprehensive-test-report-*.md"))
	if err != nil {
		return "", fmt.Errorf("list reports: %w", err)
	}

	type candidate struct {
		path string
		mod  int64
	}
	var candidates []candidate
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.Size() == 0 {
			continue
		}
		candidates = append(candidates, candidate{m, info.ModTime().UnixNano()})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no reports found in %s", dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].mod != candidates[j].mod {
			return candidates[i].mod > candidates[j].mod
		}
		return candidates[i].path > candidates[j].path
	})
	return candidates[0].path, nil
}
