package skills

import (
	"fmt"
	"strings"
	"time"
)

// TimestampPrefix starts the generation timestamp line of a rendered index.
const TimestampPrefix = "_Generated: "

// Render produces the Markdown skill index. Output depends only on idx and
// now, and only the timestamp line depends on now.
func Render(idx *Index, now time.Time) string {
	var b strings.Builder
	b.WriteString("## Available Skills\n\n")
	fmt.Fprintf(&b, "%s%s_\n\n", TimestampPrefix, now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total skills: %d\n", idx.Total())

	for _, bucket := range idx.Buckets {
		fmt.Fprintf(&b, "\n### %s\n\n", bucket.Category)
		for _, r := range bucket.Records {
			fmt.Fprintf(&b, "- **%s**: %s\n", r.Name, oneLine(r.Description))
		}
	}
	return b.String()
}

// StripTimestamp removes the timestamp line so two renders can be compared.
func StripTimestamp(rendered string) string {
	lines := strings.Split(rendered, "\n")
	out := lines[:0]
	for _, l := range lines {
		if !strings.HasPrefix(l, TimestampPrefix) {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
