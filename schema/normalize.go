package schema

import (
	"strconv"
	"strings"
)

// ValidateWorkflowID rejects ids the server never issues.
func ValidateWorkflowID(id WorkflowID) error {
	if id <= 0 {
		return ErrInvalidWorkflowID
	}
	return nil
}

// ParseWorkflowID parses a decimal workflow id from user input.
func ParseWorkflowID(value string) (WorkflowID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, ErrInvalidWorkflowID
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, ErrInvalidWorkflowID
	}
	id := WorkflowID(n)
	if err := ValidateWorkflowID(id); err != nil {
		return 0, err
	}
	return id, nil
}

// NormalizeNodeType returns the tag written on save: empty tags become DefaultNodeType.
func NormalizeNodeType(t NodeType) NodeType {
	trimmed := NodeType(strings.TrimSpace(string(t)))
	if trimmed == "" {
		return DefaultNodeType
	}
	return trimmed
}
