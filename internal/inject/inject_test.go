package inject

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "{{SKILLS_SECTION_PLACEHOLDER}}"

const template = `{
  // Agent configuration.
  "$schema": "https://opencode.ai/config.json",
  "agent": {
    "build": {
      "model": "anthropic/claude",
      "prompt": "{{SKILLS_SECTION_PLACEHOLDER}}"
    }
  },
  "notes": "keep {{SKILLS_SECTION_PLACEHOLDER}} here",
  "instructions": ["AGENTS.md", "prefix {{SKILLS_SECTION_PLACEHOLDER}}"]
}
`

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opencode.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestInjectRoundTrip(t *testing.T) {
	path := writeTemplate(t, template)
	replacement := "## Skills\n\n- **a**: \"quoted\" \\ text\n"

	res, err := Inject(path, token, replacement, nil)
	require.NoError(t, err)
	assert.Equal(t, ResultInjected, res)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "// Agent configuration.")
	assert.Contains(t, content, `"notes": "keep {{SKILLS_SECTION_PLACEHOLDER}} here"`)

	// Strip the comment so the standard decoder can read it back.
	lines := strings.Split(content, "\n")
	var kept []string
	for _, l := range lines {
		if !strings.HasPrefix(strings.TrimSpace(l), "//") {
			kept = append(kept, l)
		}
	}
	var doc struct {
		Agent map[string]struct {
			Prompt string `json:"prompt"`
		} `json:"agent"`
		Instructions []string `json:"instructions"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.Join(kept, "\n")), &doc))
	assert.Equal(t, replacement, doc.Agent["build"].Prompt)
	assert.Equal(t, "AGENTS.md", doc.Instructions[0])
	assert.Equal(t, "prefix "+replacement, doc.Instructions[1])
}

func TestInjectPreservesBytesOutsideFields(t *testing.T) {
	path := writeTemplate(t, template)
	_, err := Inject(path, token, "R", nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := strings.Replace(template, `"prompt": "{{SKILLS_SECTION_PLACEHOLDER}}"`, `"prompt": "R"`, 1)
	want = strings.Replace(want, `"prefix {{SKILLS_SECTION_PLACEHOLDER}}"`, `"prefix R"`, 1)
	assert.Equal(t, want, string(data))
}

func TestInjectNoopLeavesFileUntouched(t *testing.T) {
	content := `{"agent": {"build": {"prompt": "already concrete"}}}`
	path := writeTemplate(t, content)
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, past, past))

	res, err := Inject(path, token, "R", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultNoop, res)

	data, _ := os.ReadFile(path)
	assert.Equal(t, content, string(data))
	info, _ := os.Stat(path)
	assert.True(t, info.ModTime().Equal(past))
}

func TestInjectInvalidDocument(t *testing.T) {
	content := `{"agent": {`
	path := writeTemplate(t, content)

	_, err := Inject(path, token, "R", nil)
	assert.Error(t, err)
	data, _ := os.ReadFile(path)
	assert.Equal(t, content, string(data))
}

func TestInjectCustomFields(t *testing.T) {
	path := writeTemplate(t, `{"system": {"text": "{{SKILLS_SECTION_PLACEHOLDER}}"}, "agent": {"x": {"prompt": "{{SKILLS_SECTION_PLACEHOLDER}}"}}}`)
	res, err := Inject(path, token, "R", []string{"/system/text"})
	require.NoError(t, err)
	assert.Equal(t, ResultInjected, res)
	data, _ := os.ReadFile(path)
	assert.Equal(t, `{"system": {"text": "R"}, "agent": {"x": {"prompt": "{{SKILLS_SECTION_PLACEHOLDER}}"}}}`, string(data))
}

func TestPrepareMatchedPointers(t *testing.T) {
	plan, err := Prepare([]byte(template), token, "R", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/agent/build/prompt", "/instructions/1"}, plan.Matched)
}

func TestPrepareEmptyToken(t *testing.T) {
	_, err := Prepare([]byte(template), "", "R", nil)
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	path := writeTemplate(t, template)
	text, err := Describe(path, token, "12345", nil)
	require.NoError(t, err)
	assert.Contains(t, text, "would inject 5 bytes")
	assert.Contains(t, text, "/agent/build/prompt")

	data, _ := os.ReadFile(path)
	assert.Equal(t, template, string(data))
}

func TestPointerEscaping(t *testing.T) {
	assert.Equal(t, []string{"a/b", "c~d"}, splitPointer("/a~1b/c~0d"))
	assert.Equal(t, "/a~1b/c~0d", joinPointer([]string{"a/b", "c~d"}))
}
