package casefile

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Case metadata is stored as a hash. Structured fields (categories, rules, exclusion
// groups, solution) are JSON-encoded into single hash fields. Actions and evidence
// live under their own keys and are encoded one JSON document per entry.

// EvidenceEvent is published on the evidence channel after an action is executed.
type EvidenceEvent struct {
	CaseID   string   `json:"case_id"`
	Evidence Evidence `json:"evidence"`
}

// CaseToHash converts the case metadata to a Redis hash.
// Actions and evidence are not included.
func CaseToHash(c *Case) (map[string]interface{}, error) {
	categoriesJSON, err := json.Marshal(c.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal categories: %w", err)
	}

	rulesJSON, err := json.Marshal(c.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rules: %w", err)
	}

	groupsJSON, err := json.Marshal(c.ExclusionGroups)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal exclusion_groups: %w", err)
	}

	hash := map[string]interface{}{
		"id":               c.ID,
		"title":            c.Title,
		"categories":       string(categoriesJSON),
		"rules":            string(rulesJSON),
		"exclusion_groups": string(groupsJSON),
		"total_cost":       c.TotalCost,
		"created_at_ms":    c.CreatedAtMs,
	}

	if c.Solution != nil {
		solutionJSON, err := json.Marshal(c.Solution)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal solution: %w", err)
		}
		hash["solution"] = string(solutionJSON)
	} else {
		hash["solution"] = ""
	}

	return hash, nil
}

// HashToCase converts a Redis hash back to case metadata.
// The returned case has empty Actions and Evidence.
func HashToCase(hash map[string]string) (*Case, error) {
	var categories []Category
	if err := json.Unmarshal([]byte(hash["categories"]), &categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}

	var rules []Rule
	if rulesJSON := hash["rules"]; rulesJSON != "" {
		if err := json.Unmarshal([]byte(rulesJSON), &rules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
		}
	}

	var groups [][]string
	if groupsJSON := hash["exclusion_groups"]; groupsJSON != "" {
		if err := json.Unmarshal([]byte(groupsJSON), &groups); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exclusion_groups: %w", err)
		}
	}

	var solution map[string]string
	if solutionJSON := hash["solution"]; solutionJSON != "" {
		if err := json.Unmarshal([]byte(solutionJSON), &solution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal solution: %w", err)
		}
	}

	totalCost, err := strconv.Atoi(hash["total_cost"])
	if err != nil {
		return nil, fmt.Errorf("invalid total_cost field: %w", err)
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &Case{
		ID:              hash["id"],
		Title:           hash["title"],
		Categories:      categories,
		Actions:         []Action{},
		Evidence:        []Evidence{},
		TotalCost:       totalCost,
		Rules:           rules,
		ExclusionGroups: groups,
		Solution:        solution,
		CreatedAtMs:     createdAtMs,
	}, nil
}

// encodeAction returns the JSON stored in the actions hash.
func encodeAction(a *Action) (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to marshal action %q: %w", a.ID, err)
	}
	return string(data), nil
}

func decodeAction(raw string) (*Action, error) {
	var a Action
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action: %w", err)
	}
	return &a, nil
}

func encodeEvidence(e *Evidence) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal evidence: %w", err)
	}
	return string(data), nil
}

func decodeEvidence(raw string) (*Evidence, error) {
	var e Evidence
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
	}
	return &e, nil
}
