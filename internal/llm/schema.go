package llm

// CardFieldKeys are the keys a vision answer may carry.
var CardFieldKeys = []string{"name", "phone", "email", "company", "country"}

// CardJSONSchema describes the object expected back from a vision model. All
// fields are optional strings; extra keys are tolerated and ignored.
func CardJSONSchema() map[string]any {
	props := make(map[string]any, len(CardFieldKeys))
	for _, k := range CardFieldKeys {
		props[k] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
	}
}
