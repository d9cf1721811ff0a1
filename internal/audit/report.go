package audit

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/skillkit-labs/skillkit/internal/platform"
)

// ReportFileName returns the report file name for a run at now.
func ReportFileName(now time.Time) string {
	return "skill-audit-" + now.Format("2006-01-02") + ".md"
}

// WriteReport renders res as Markdown.
func WriteReport(w io.Writer, res *Result, now time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Skill Audit\n\n")
	fmt.Fprintf(&b, "_Generated: %s_\n\n", now.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Skills analyzed: %d\n", len(res.Skills))
	if len(res.Warnings) > 0 {
		fmt.Fprintf(&b, "Skipped: %d\n", len(res.Warnings))
	}

	if res.Options.Tokens {
		writeTokens(&b, res.Tokens)
	}
	if res.Options.Duplicity {
		writePairs(&b, res.Pairs)
	}
	if res.Options.Compatibility {
		writeCompat(&b, res.Compat, res.Agents)
	}
	if len(res.Warnings) > 0 {
		b.WriteString("\n## Skipped\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- `%s`: %s\n", w.Path, w.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// SaveReport writes the report into dir and returns its path.
func SaveReport(dir string, res *Result, now time.Time) (string, error) {
	var b strings.Builder
	if err := WriteReport(&b, res, now); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ReportFileName(now))
	if err := platform.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing audit report: %w", err)
	}
	return path, nil
}

func writeTokens(b *strings.Builder, costs []TokenCost) {
	total := 0
	counts := map[string]int{}
	for _, c := range costs {
		total += c.Tokens
		counts[c.Status]++
	}

	b.WriteString("\n## Token Costs\n\n")
	fmt.Fprintf(b, "Total: ~%d tokens. %d critical (> %d), %d warning (> %d).\n\n",
		total, counts[StatusCritical], CriticalTokens, counts[StatusWarning], WarningTokens)
	b.WriteString("| Skill | Category | Chars | Tokens | Code blocks | Status |\n")
	b.WriteString("|-------|----------|------:|-------:|------------:|--------|\n")
	for _, c := range costs {
		fmt.Fprintf(b, "| %s | %s | %d | %d | %d | %s |\n", c.Name, c.Category, c.Chars, c.Tokens, c.CodeBlocks, c.Status)
	}
}

func writePairs(b *strings.Builder, pairs []Pair) {
	b.WriteString("\n## Duplicity\n\n")
	if len(pairs) == 0 {
		fmt.Fprintf(b, "No pairs at or above %d%%.\n", ModerateDuplicity)
		return
	}
	b.WriteString("| Skill A | Skill B | Score | Level |\n")
	b.WriteString("|---------|---------|------:|-------|\n")
	for _, p := range pairs {
		level := "moderate"
		if p.High() {
			level = "high"
		}
		fmt.Fprintf(b, "| %s | %s | %d%% | %s |\n", p.A, p.B, p.Score, level)
	}
}

func writeCompat(b *strings.Builder, rows []Compatibility, agents []Subagent) {
	b.WriteString("\n## Subagent Compatibility\n\n")
	b.WriteString("| Skill |")
	sep := "|-------|"
	for _, a := range agents {
		fmt.Fprintf(b, " %s |", a.Name)
		sep += ":---:|"
	}
	b.WriteString("\n" + sep + "\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| %s |", r.Skill)
		for _, a := range agents {
			mark := "✗"
			if r.Agents[a.Name] {
				mark = "✓"
			}
			fmt.Fprintf(b, " %s |", mark)
		}
		b.WriteString("\n")
	}
}
