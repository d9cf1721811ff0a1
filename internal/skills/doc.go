// Package skills scans a directory of skill definitions and builds the skill
// index injected into the agent configuration.
//
// Each immediate subdirectory holding a SKILL.md file is one skill. The file
// starts with a YAML front matter block carrying at least name and
// description; the block is validated against an embedded JSON schema. A
// skill whose metadata is missing or invalid is skipped with a warning and
// never fails the scan.
//
// Skills are bucketed by ordered name rules (first match wins, no match goes
// to Other) and rendered as Markdown. Rendering is deterministic apart from
// the generation timestamp line.
package skills
