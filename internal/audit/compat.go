package audit

import "strings"

// MCP server names a skill may depend on.
const (
	MCPAtlassian = "atlassian"
	MCPDrawio    = "drawio"
	MCPZai       = "zai-mcp-server"
)

// Subagent describes what an agent is allowed to use.
type Subagent struct {
	Name string
	// CanDelegate is true for agents that may spawn tasks.
	CanDelegate bool
	MCP         []string
}

func (s Subagent) allowsMCP(name string) bool {
	for _, m := range s.MCP {
		if m == name {
			return true
		}
	}
	return false
}

// DefaultSubagents are the agents shipped in the bundle.
var DefaultSubagents = []Subagent{
	{Name: "primary", CanDelegate: true, MCP: []string{MCPAtlassian, MCPDrawio, MCPZai}},
	{Name: "linting-subagent"},
	{Name: "testing-subagent"},
	{Name: "git-workflow-subagent", MCP: []string{MCPAtlassian}},
	{Name: "documentation-subagent"},
	{Name: "opentofu-explorer-subagent"},
	{Name: "workflow-subagent", MCP: []string{MCPAtlassian}},
}

// Requirements are the capabilities a skill's text asks for.
type Requirements struct {
	Delegates bool
	MCP       []string
}

var delegationWords = []string{"task", "delegate", "subagent"}

// DetectRequirements scans a skill body for delegation and MCP server use.
func DetectRequirements(body string) Requirements {
	var r Requirements
	for _, w := range delegationWords {
		if strings.Contains(body, w) {
			r.Delegates = true
			break
		}
	}
	lc := strings.ToLower(body)
	for _, m := range []string{MCPAtlassian, MCPDrawio, MCPZai} {
		if strings.Contains(lc, m) {
			r.MCP = append(r.MCP, m)
		}
	}
	return r
}

// Compatible reports whether agent a can load a skill with requirements r.
func (r Requirements) Compatible(a Subagent) bool {
	if r.Delegates && !a.CanDelegate {
		return false
	}
	for _, m := range r.MCP {
		if !a.allowsMCP(m) {
			return false
		}
	}
	return true
}

// Compatibility is one skill's row of the compatibility matrix.
type Compatibility struct {
	Skill        string
	Requirements Requirements
	// Agents maps subagent name to whether it can load the skill.
	Agents map[string]bool
}

// CheckCompatibility builds the compatibility matrix in skill order.
func CheckCompatibility(list []Skill, agents []Subagent) []Compatibility {
	out := make([]Compatibility, 0, len(list))
	for _, s := range list {
		req := DetectRequirements(s.Body)
		row := Compatibility{Skill: s.Name, Requirements: req, Agents: map[string]bool{}}
		for _, a := range agents {
			row.Agents[a.Name] = req.Compatible(a)
		}
		out = append(out, row)
	}
	return out
}
