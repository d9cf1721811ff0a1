package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, root, dir, content string) {
	t.Helper()
	p := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(p, 0755))
	if content != "" {
		require.NoError(t, os.WriteFile(filepath.Join(p, MetadataFile), []byte(content), 0644))
	}
}

func skillDoc(name, desc string) string {
	return "---\nname: " + name + "\ndescription: " + desc + "\n---\n\n# " + name + "\n\n## What I do\n\nThings.\n"
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantName string
		wantDesc string
	}{
		{"valid", skillDoc("git-pr-creator", "Create pull requests"), false, "git-pr-creator", "Create pull requests"},
		{"extra keys ignored", "---\nname: a\ndescription: b\nlicense: MIT\nmetadata:\n  audience: devs\n---\nbody", false, "a", "b"},
		{"no front matter", "# just markdown\n", true, "", ""},
		{"missing description", "---\nname: a\n---\nbody", true, "", ""},
		{"empty name", "---\nname: \"\"\ndescription: b\n---\n", true, "", ""},
		{"non string name", "---\nname: 42\ndescription: b\n---\n", true, "", ""},
		{"broken yaml", "---\nname: [unclosed\ndescription: b\n---\n", true, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, doc.Metadata.Name)
			assert.Equal(t, tt.wantDesc, doc.Metadata.Description)
		})
	}
}

func TestParseSchemaIssues(t *testing.T) {
	_, err := Parse([]byte("---\nname: a\n---\n"))
	var me *MetadataError
	require.ErrorAs(t, err, &me)
	require.NotEmpty(t, me.Issues)
	assert.Equal(t, "required", me.Issues[0].Keyword)
}

func TestDocumentSection(t *testing.T) {
	doc, err := Parse([]byte("---\nname: a\ndescription: b\n---\n## What I do\n\nLint code.\n\n## When to use me\n\nAlways.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Lint code.", doc.Section("## What I do"))
	assert.Equal(t, "Always.", doc.Section("## When to use me"))
	assert.Equal(t, "", doc.Section("## Steps"))
}

func TestClassify(t *testing.T) {
	c := MustClassifier(DefaultRules)
	tests := []struct {
		name string
		want string
	}{
		{"test-generator-framework", CategoryTesting},
		{"python-pytest-creator", CategoryTesting},
		{"python-ruff-linter", CategoryLinting},
		{"javascript-eslint-linter", CategoryLinting},
		{"git-pr-creator", CategoryGit},
		{"jira-ticket-workflow", CategoryGit},
		{"opentofu-aws-explorer", CategoryInfrastructure},
		{"docstring-generator", CategoryDocumentation},
		{"coverage-standard", CategoryProjectSetup},
		{"release-workflow", CategoryWorkflow},
		{"linting-workflow", CategoryLinting},
		{"error-resolver-framework", CategoryFramework},
		{"python-refactorer", CategoryLanguage},
		{"opencode-skill-auditor", CategoryMeta},
		{"something-else", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.name))
		})
	}
}

func TestNewClassifierBadPattern(t *testing.T) {
	_, err := NewClassifier([]Rule{{"Broken", []string{"[unclosed"}}})
	assert.Error(t, err)
}

func TestIndexEndToEndScenario(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "test-generator-framework", skillDoc("test-generator-framework", "Generate tests"))
	writeSkill(t, root, "python-ruff-linter", skillDoc("python-ruff-linter", "Lint Python"))
	writeSkill(t, root, "orphan-skill", "")

	idx, err := NewIndexer(nil).Index(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Total())
	require.Len(t, idx.Buckets, 2)
	assert.Equal(t, CategoryTesting, idx.Buckets[0].Category)
	assert.Len(t, idx.Buckets[0].Records, 1)
	assert.Equal(t, CategoryLinting, idx.Buckets[1].Category)
	assert.Len(t, idx.Buckets[1].Records, 1)

	require.Len(t, idx.Warnings, 1)
	assert.Contains(t, idx.Warnings[0].Path, "orphan-skill")

	out := Render(idx, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Contains(t, out, "Total skills: 2")
	assert.Contains(t, out, "- **test-generator-framework**: Generate tests")
	assert.Contains(t, out, "- **python-ruff-linter**: Lint Python")
	assert.Less(t, strings.Index(out, "### Testing"), strings.Index(out, "### Linting"))
}

func TestIndexMalformedDoesNotBlockOthers(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "a-good", skillDoc("a-good", "Fine"))
	writeSkill(t, root, "b-bad", "---\nname: [oops\n---\n")
	writeSkill(t, root, "c-good", skillDoc("c-good", "Also fine"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("not a skill"), 0644))

	idx, err := NewIndexer(nil).Index(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Total())
	assert.Len(t, idx.Warnings, 1)
}

func TestIndexDuplicateNameFirstWins(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "alpha", skillDoc("shared-name", "first"))
	writeSkill(t, root, "beta", skillDoc("shared-name", "second"))

	idx, err := NewIndexer(nil).Index(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, idx.Records, 1)
	assert.Equal(t, "first", idx.Records[0].Description)
	require.Len(t, idx.Warnings, 1)
	assert.Contains(t, idx.Warnings[0].Reason, "duplicate")
}

func TestIndexMissingRoot(t *testing.T) {
	_, err := NewIndexer(nil).Index(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRenderDeterministic(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"zeta-workflow", "alpha-framework", "python-black-linter", "misc"} {
		writeSkill(t, root, n, skillDoc(n, "desc of "+n))
	}
	ix := NewIndexer(nil)

	first, err := ix.Index(context.Background(), root)
	require.NoError(t, err)
	second, err := ix.Index(context.Background(), root)
	require.NoError(t, err)

	a := Render(first, time.Now())
	b := Render(second, time.Now().Add(time.Hour))
	assert.Equal(t, StripTimestamp(a), StripTimestamp(b))
	assert.Equal(t, first.Buckets, second.Buckets)

	// Framework-like categories lead, Other trails.
	assert.Less(t, strings.Index(a, "### Framework"), strings.Index(a, "### Workflow"))
	assert.Less(t, strings.Index(a, "### Linting"), strings.Index(a, "### Other"))
}
