package audit

import (
	"sort"
	"strings"
)

// Token budget thresholds.
const (
	WarningTokens  = 2000
	CriticalTokens = 3000
)

// Token cost statuses.
const (
	StatusOK       = "OK"
	StatusWarning  = "WARNING"
	StatusCritical = "CRITICAL"
)

// TokenCost is the estimated prompt cost of loading a skill.
type TokenCost struct {
	Name       string
	Category   string
	Chars      int
	Tokens     int
	CodeBlocks int
	Status     string
}

// EstimateTokens assumes four characters per token plus ten percent overhead.
func EstimateTokens(chars int) int {
	return int(float64(chars) / 4 * 1.1)
}

// TokenStatus grades a token estimate against the budget thresholds.
func TokenStatus(tokens int) string {
	switch {
	case tokens > CriticalTokens:
		return StatusCritical
	case tokens > WarningTokens:
		return StatusWarning
	default:
		return StatusOK
	}
}

// TokenCosts estimates every skill, most expensive first.
func TokenCosts(list []Skill) []TokenCost {
	out := make([]TokenCost, 0, len(list))
	for _, s := range list {
		tokens := EstimateTokens(s.Size)
		out = append(out, TokenCost{
			Name:       s.Name,
			Category:   s.Category,
			Chars:      s.Size,
			Tokens:     tokens,
			CodeBlocks: strings.Count(s.Body, "```") / 2,
			Status:     TokenStatus(tokens),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tokens != out[j].Tokens {
			return out[i].Tokens > out[j].Tokens
		}
		return out[i].Name < out[j].Name
	})
	return out
}
