// Package inject substitutes a placeholder token inside selected string
// fields of a JSON or JSONC configuration document and atomically replaces
// the file on disk.
//
// The document is parsed into an AST, so a token that appears in a field
// outside the scoped set is never touched, and every byte outside the
// modified string literals is preserved, comments and formatting included.
package inject

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/skillkit-labs/skillkit/internal/platform"
)

// Result reports what Inject did.
type Result int

const (
	// ResultNoop means no scoped field held the token; the file is untouched.
	ResultNoop Result = iota
	// ResultInjected means the file was rewritten.
	ResultInjected
)

func (r Result) String() string {
	if r == ResultInjected {
		return "injected"
	}
	return "noop"
}

// DefaultFields are the JSON pointer patterns scoped for substitution.
// A * segment matches exactly one object key or array index.
var DefaultFields = []string{"/agent/*/prompt", "/instructions/*"}

// Plan describes a substitution without touching the filesystem.
type Plan struct {
	// Matched lists the JSON pointers of fields that contained the token.
	Matched []string
	// Output is the rewritten document. It is nil when Matched is empty.
	Output []byte
}

// Prepare parses data and substitutes token with replacement in every string
// value whose location matches one of fields.
func Prepare(data []byte, token, replacement string, fields []string) (*Plan, error) {
	if token == "" {
		return nil, fmt.Errorf("empty placeholder token")
	}
	if len(fields) == 0 {
		fields = DefaultFields
	}
	patterns := make([][]string, 0, len(fields))
	for _, f := range fields {
		patterns = append(patterns, splitPointer(f))
	}

	root, err := hujson.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	plan := &Plan{}
	walk(&root, nil, func(v *hujson.Value, path []string) {
		lit, ok := v.Value.(hujson.Literal)
		if !ok || lit.Kind() != '"' || !matchesAny(path, patterns) {
			return
		}
		s := lit.String()
		if !strings.Contains(s, token) {
			return
		}
		v.Value = hujson.String(strings.ReplaceAll(s, token, replacement))
		plan.Matched = append(plan.Matched, joinPointer(path))
	})

	if len(plan.Matched) > 0 {
		plan.Output = root.Pack()
	}
	return plan, nil
}

// Inject substitutes token in the scoped fields of the document at path and
// replaces the file atomically. A document without the token in any scoped
// field is left untouched and ResultNoop is returned.
func Inject(path, token, replacement string, fields []string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ResultNoop, fmt.Errorf("reading %s: %w", path, err)
	}
	plan, err := Prepare(data, token, replacement, fields)
	if err != nil {
		return ResultNoop, fmt.Errorf("%s: %w", path, err)
	}
	if len(plan.Matched) == 0 {
		return ResultNoop, nil
	}

	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := platform.WriteFileAtomic(path, plan.Output, perm); err != nil {
		return ResultNoop, err
	}
	return ResultInjected, nil
}

// Describe returns the dry-run text for injecting into the document at path.
func Describe(path, token, replacement string, fields []string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	plan, err := Prepare(data, token, replacement, fields)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if len(plan.Matched) == 0 {
		return fmt.Sprintf("would leave %s unchanged (no %s in scoped fields)", path, token), nil
	}
	return fmt.Sprintf("would inject %d bytes into %s at %s", len(replacement), path, strings.Join(plan.Matched, ", ")), nil
}

// walk visits every value in the tree with its pointer segments.
func walk(v *hujson.Value, path []string, fn func(*hujson.Value, []string)) {
	switch vv := v.Value.(type) {
	case *hujson.Object:
		for i := range vv.Members {
			m := &vv.Members[i]
			key := ""
			if lit, ok := m.Name.Value.(hujson.Literal); ok {
				key = lit.String()
			}
			walk(&m.Value, appendPath(path, key), fn)
		}
	case *hujson.Array:
		for i := range vv.Elements {
			walk(&vv.Elements[i], appendPath(path, strconv.Itoa(i)), fn)
		}
	default:
		fn(v, path)
	}
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

func matchesAny(path []string, patterns [][]string) bool {
	for _, p := range patterns {
		if matchPointer(path, p) {
			return true
		}
	}
	return false
}

func matchPointer(path, pattern []string) bool {
	if len(path) != len(pattern) {
		return false
	}
	for i := range pattern {
		if pattern[i] != "*" && pattern[i] != path[i] {
			return false
		}
	}
	return true
}

// splitPointer splits an RFC 6901 pointer into unescaped segments.
func splitPointer(p string) []string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		s = strings.ReplaceAll(s, "~1", "/")
		segs[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return segs
}

func joinPointer(segs []string) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		s = strings.ReplaceAll(s, "~", "~0")
		b.WriteString(strings.ReplaceAll(s, "/", "~1"))
	}
	return b.String()
}
