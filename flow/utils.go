package flow

import "strings"

// BranchKeyNormalizer converts edge source-handle labels into the
// lowercase keys FlowNode.Next is keyed by, and back into display labels.
type BranchKeyNormalizer struct{}

// NormalizeToLowercase maps a raw sourceHandle value onto the internal
// branch key: empty becomes "default", anything else is lowercased.
func (BranchKeyNormalizer) NormalizeToLowercase(sourceHandle string) string {
	if sourceHandle == "" {
		return "default"
	}
	return strings.ToLower(sourceHandle)
}

// NormalizeToCapitalized maps an internal branch key to its display
// label: "default" has none (empty string), "yes"/"no" capitalize, other
// keys pass through unchanged.
func (BranchKeyNormalizer) NormalizeToCapitalized(branchKey string) string {
	switch branchKey {
	case "default":
		return ""
	case "yes":
		return "Yes"
	case "no":
		return "No"
	default:
		return branchKey
	}
}

// NormalizeForDisplay is NormalizeToCapitalized with "default" substituted
// back in for the empty case.
func (n BranchKeyNormalizer) NormalizeForDisplay(branchKey string) string {
	if capitalized := n.NormalizeToCapitalized(branchKey); capitalized != "" {
		return capitalized
	}
	return "default"
}
