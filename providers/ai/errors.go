package ai

import (
	"fmt"
	"strings"
)

// MissingConfigError reports that a backend cannot be called because
// required settings are absent. Keys lists the environment variable names.
type MissingConfigError struct {
	// Label names the configuration group, e.g. "Azure OpenAI config".
	// When empty and only one key is missing the key itself is the label.
	Label string
	Keys  []string
}

func (e *MissingConfigError) Error() string {
	return "missing configuration: " + strings.Join(e.Keys, ", ")
}

// Placeholder renders the text stored in the transcript in place of an
// assistant answer, e.g. "[OPENAI_API_KEY missing]".
func (e *MissingConfigError) Placeholder() string {
	if e.Label == "" && len(e.Keys) == 1 {
		return fmt.Sprintf("[%s missing]", e.Keys[0])
	}
	label := e.Label
	if label == "" {
		label = "config"
	}
	return fmt.Sprintf("[%s missing: %s]", label, strings.Join(e.Keys, ", "))
}

// RequireKeys returns a *MissingConfigError listing every pair whose value is
// empty, or nil when all are set. Pairs alternate name and value.
func RequireKeys(label string, pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingConfigError{Label: label, Keys: missing}
}
