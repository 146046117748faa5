package targeting

import (
	"fmt"
)

// Requirement describes how many targets a pending choice needs.
type Requirement struct {
	// MinTargets is the minimum number of picks
	MinTargets int
	// MaxTargets is the maximum number of picks
	MaxTargets int
	// Description is a human-readable description used in errors
	Description string
}

// Selection is a player's set of picks for a requirement.
type Selection struct {
	Targets     []string
	Requirement Requirement
}

// Validate checks counts, membership in valid and duplicates.
func (s *Selection) Validate(valid []string) error {
	if s == nil {
		return fmt.Errorf("target selection is nil")
	}
	count := len(s.Targets)
	if count < s.Requirement.MinTargets {
		return fmt.Errorf("not enough targets: need at least %d, got %d", s.Requirement.MinTargets, count)
	}
	if count > s.Requirement.MaxTargets {
		return fmt.Errorf("too many targets: need at most %d, got %d", s.Requirement.MaxTargets, count)
	}

	allowed := make(map[string]bool, len(valid))
	for _, id := range valid {
		allowed[id] = true
	}
	seen := make(map[string]bool, count)
	for _, id := range s.Targets {
		if !allowed[id] {
			return fmt.Errorf("invalid target %s for %s", id, s.Requirement.Description)
		}
		if seen[id] {
			return fmt.Errorf("duplicate target: %s", id)
		}
		seen[id] = true
	}
	return nil
}

// ValidateSingle checks that id is one of valid.
func ValidateSingle(id string, valid []string) error {
	sel := &Selection{
		Targets:     []string{id},
		Requirement: Requirement{MinTargets: 1, MaxTargets: 1, Description: "single target"},
	}
	return sel.Validate(valid)
}
