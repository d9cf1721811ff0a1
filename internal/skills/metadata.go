package skills

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/adrg/frontmatter"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MetadataFile is the file name that marks a directory as a skill.
const MetadataFile = "SKILL.md"

//go:embed schema/skill.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// ErrNoMetadata is returned when a skill file has no front matter block.
var ErrNoMetadata = errors.New("no front matter block")

// Metadata is the front matter of a skill file.
type Metadata struct {
	Name        string
	Description string
	// Extra holds every other front matter key.
	Extra map[string]any
}

// Document is a parsed skill file.
type Document struct {
	Metadata Metadata
	Body     string
	// Size is the length of the whole file in bytes, front matter included.
	Size int
}

// ValidationIssue is a single schema violation.
type ValidationIssue struct {
	Path    string
	Message string
	Keyword string
}

// MetadataError reports front matter that failed schema validation.
type MetadataError struct {
	Issues []ValidationIssue
}

func (e *MetadataError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Path != "" {
			parts = append(parts, is.Path+": "+is.Message)
		} else {
			parts = append(parts, is.Message)
		}
	}
	return "invalid metadata: " + strings.Join(parts, "; ")
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("skill.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("skill.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ParseFile reads a skill file and returns its validated metadata and body.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse splits data into front matter and body and validates the front matter.
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	body, err := frontmatter.MustParse(bytes.NewReader(data), &raw)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, ErrNoMetadata
		}
		return nil, fmt.Errorf("parsing front matter: %w", err)
	}
	if raw == nil {
		return nil, ErrNoMetadata
	}

	normalized := normalizeYAML(raw).(map[string]any)
	if err := validate(normalized); err != nil {
		return nil, err
	}

	meta := Metadata{Extra: map[string]any{}}
	for k, v := range normalized {
		switch k {
		case "name":
			meta.Name = strings.TrimSpace(v.(string))
		case "description":
			meta.Description = strings.TrimSpace(v.(string))
		default:
			meta.Extra[k] = v
		}
	}

	return &Document{Metadata: meta, Body: string(body), Size: len(data)}, nil
}

func validate(raw map[string]any) error {
	schema, err := getSchema()
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("converting to JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("unexpected validation error type: %w", err)
	}
	var issues []ValidationIssue
	collectIssues(ve, &issues)
	if len(issues) == 0 {
		issues = []ValidationIssue{{Message: ve.Error()}}
	}
	return &MetadataError{Issues: issues}
}

func collectIssues(ve *jsonschema.ValidationError, issues *[]ValidationIssue) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectIssues(cause, issues)
		}
		return
	}

	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}
	var keyword, msg string
	if ve.ErrorKind != nil {
		if kw := ve.ErrorKind.KeywordPath(); len(kw) > 0 {
			keyword = kw[len(kw)-1]
		}
		msg = ve.ErrorKind.LocalizedString(printer)
	}
	*issues = append(*issues, ValidationIssue{Path: path, Message: msg, Keyword: keyword})
}

// normalizeYAML converts YAML-decoded values to JSON-compatible types. The
// front matter decoder yields map[interface{}]interface{} for nested maps.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[k] = normalizeYAML(v)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case []any:
		a := make([]any, len(val))
		for i, v := range val {
			a[i] = normalizeYAML(v)
		}
		return a
	default:
		return val
	}
}

// Section returns the text of the Markdown section that starts with the
// heading start, up to the next heading of the same level. It returns an
// empty string when the heading is absent.
func (d *Document) Section(start string) string {
	idx := strings.Index(d.Body, start)
	if idx < 0 {
		return ""
	}
	rest := d.Body[idx+len(start):]
	level := strings.SplitN(strings.TrimSpace(start), " ", 2)[0] + " "
	if end := strings.Index(rest, "\n"+level); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
