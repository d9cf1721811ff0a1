package skills

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Category names. RenderOrder fixes the section order of the index.
const (
	CategoryFramework      = "Framework"
	CategoryWorkflow       = "Workflow"
	CategoryTesting        = "Testing"
	CategoryLinting        = "Linting"
	CategoryLanguage       = "Language-Specific"
	CategoryGit            = "Git & Jira"
	CategoryInfrastructure = "Infrastructure"
	CategoryDocumentation  = "Documentation"
	CategoryProjectSetup   = "Project Setup"
	CategoryMeta           = "Meta"
	CategoryOther          = "Other"
)

// RenderOrder lists categories in the order sections appear in the index.
// Framework-like categories come first.
var RenderOrder = []string{
	CategoryFramework,
	CategoryWorkflow,
	CategoryTesting,
	CategoryLinting,
	CategoryLanguage,
	CategoryGit,
	CategoryInfrastructure,
	CategoryDocumentation,
	CategoryProjectSetup,
	CategoryMeta,
	CategoryOther,
}

// Rule assigns Category to any skill whose name matches one of Patterns.
type Rule struct {
	Category string
	Patterns []string
}

// DefaultRules are evaluated in order against the skill name. Substring
// rules for testing and linting come first so that a skill such as
// python-ruff-linter is filed as linting, not as a language skill.
var DefaultRules = []Rule{
	{CategoryTesting, []string{"*test*", "*pytest*"}},
	{CategoryLinting, []string{"*lint*"}},
	{CategoryGit, []string{"git-*", "jira-*", "*-git-*", "*-jira-*"}},
	{CategoryInfrastructure, []string{"opentofu-*", "*terraform*", "*docker*", "*kubernetes*", "*k8s*"}},
	{CategoryDocumentation, []string{"*doc*", "*diagram*", "*readme*"}},
	{CategoryProjectSetup, []string{"*-setup", "*-standard", "*-init"}},
	{CategoryWorkflow, []string{"*-workflow", "*workflow*"}},
	{CategoryFramework, []string{"*-framework", "*framework*"}},
	{CategoryLanguage, []string{"python-*", "javascript-*", "typescript-*", "nextjs-*", "go-*", "golang-*", "java-*", "rust-*"}},
	{CategoryMeta, []string{"opencode-*", "skill-*", "*-skill-*"}},
}

type compiledRule struct {
	category string
	globs    []glob.Glob
}

// Classifier buckets skill names by ordered glob rules.
type Classifier struct {
	rules []compiledRule
}

// NewClassifier compiles rules. Patterns use glob syntax where * matches any
// run of characters.
func NewClassifier(rules []Rule) (*Classifier, error) {
	c := &Classifier{}
	for _, r := range rules {
		cr := compiledRule{category: r.Category}
		for _, p := range r.Patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q for %s: %w", p, r.Category, err)
			}
			cr.globs = append(cr.globs, g)
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

// MustClassifier is like NewClassifier but panics on a bad pattern.
func MustClassifier(rules []Rule) *Classifier {
	c, err := NewClassifier(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the category of the first rule matching name, or Other.
func (c *Classifier) Classify(name string) string {
	for _, r := range c.rules {
		for _, g := range r.globs {
			if g.Match(name) {
				return r.category
			}
		}
	}
	return CategoryOther
}
