// Package audit measures the skill library: estimated token cost of each
// skill, pairwise duplicity between skills and which subagents can load them.
package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/skills"
)

// Section headings compared by the duplicity score.
const (
	HeadingWhatIDo   = "## What I do"
	HeadingWhenToUse = "## When to use me"
	HeadingSteps     = "## Steps"
)

// Skill is the auditable content of one skill.
type Skill struct {
	Name        string
	Description string
	Category    string
	Path        string
	WhatIDo     string
	WhenToUse   string
	Steps       string
	// Body is the Markdown after the front matter.
	Body string
	// Size is the length of the whole file in bytes.
	Size int
}

// Load indexes root and reads the content of every valid skill. Skills the
// indexer skipped are returned as warnings.
func Load(ctx context.Context, root string) ([]Skill, []skills.Warning, error) {
	idx, err := skills.NewIndexer(nil).Index(ctx, root)
	if err != nil {
		return nil, nil, err
	}

	out := make([]Skill, 0, len(idx.Records))
	warnings := idx.Warnings
	for _, rec := range idx.Records {
		doc, err := skills.ParseFile(rec.Path)
		if err != nil {
			// Changed between indexing and reading.
			warnings = append(warnings, skills.Warning{Path: rec.Path, Reason: err.Error()})
			logger.G(ctx).WithError(err).WithField("path", rec.Path).Warn("skipping skill")
			continue
		}
		out = append(out, Skill{
			Name:        rec.Name,
			Description: rec.Description,
			Category:    rec.Category,
			Path:        rec.Path,
			WhatIDo:     doc.Section(HeadingWhatIDo),
			WhenToUse:   doc.Section(HeadingWhenToUse),
			Steps:       doc.Section(HeadingSteps),
			Body:        doc.Body,
			Size:        doc.Size,
		})
	}
	return out, warnings, nil
}

// Options selects the analyses a Run performs. The zero value runs all of them.
type Options struct {
	Tokens        bool
	Duplicity     bool
	Compatibility bool
}

func (o Options) all() bool {
	return !o.Tokens && !o.Duplicity && !o.Compatibility
}

// Result holds the outcome of an audit.
type Result struct {
	// Options lists the analyses that ran.
	Options  Options
	Root     string
	Skills   []Skill
	Warnings []skills.Warning
	Tokens   []TokenCost
	Pairs    []Pair
	Compat   []Compatibility
	Agents   []Subagent
}

// Run loads the skills under root and performs the selected analyses.
func Run(ctx context.Context, root string, opts Options) (*Result, error) {
	list, warnings, err := Load(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("loading skills: %w", err)
	}
	if opts.all() {
		opts = Options{Tokens: true, Duplicity: true, Compatibility: true}
	}
	res := &Result{Options: opts, Root: root, Skills: list, Warnings: warnings}

	if opts.Tokens {
		res.Tokens = TokenCosts(list)
	}
	if opts.Duplicity {
		res.Pairs = Duplicates(list, ModerateDuplicity)
	}
	if opts.Compatibility {
		res.Agents = DefaultSubagents
		res.Compat = CheckCompatibility(list, res.Agents)
	}
	logger.G(ctx).WithField("skills", len(list)).Debug("audit complete")
	return res, nil
}

func lower(s string) string { return strings.ToLower(s) }
