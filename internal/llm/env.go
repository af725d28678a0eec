package llm

import "strings"

// MissingKeys reports the provider key environment variables a model
// identifier is likely to need but that are unset. Matching is by substring,
// so it only drives warnings.
func MissingKeys(model string, lookup func(string) (string, bool)) []string {
	m := strings.ToLower(model)

	var need []string
	if strings.Contains(m, "openai") || strings.Contains(m, "gpt") {
		need = append(need, "OPENAI_API_KEY")
	}
	if strings.Contains(m, "anthropic") || strings.Contains(m, "claude") {
		need = append(need, "ANTHROPIC_API_KEY")
	}
	if strings.Contains(m, "volcengine") {
		need = append(need, "VOLCENGINE_API_KEY")
	}

	var missing []string
	for _, key := range need {
		if v, ok := lookup(key); !ok || v == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
