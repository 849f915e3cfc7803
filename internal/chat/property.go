package chat

import "encoding/json"

// Property carries the facts the prompt builder grounds replies in.
// Amenities, Rules and FAQ are normalized maps; see DecodeFactMap.
type Property struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Language       string            `json:"language"`
	Amenities      map[string]string `json:"amenities"`
	Rules          map[string]string `json:"rules"`
	FAQ            map[string]string `json:"faq"`
	AIInstructions string            `json:"ai_instructions"`
}

// DecodeFactMap normalizes a raw property fact field into a string map.
// Fields may arrive as serialized JSON text, as an already-decoded object,
// or not at all; malformed or missing input yields an empty map, never an
// error. Non-string values are rendered through json.Marshal so structured
// entries survive as text.
func DecodeFactMap(raw any) map[string]string {
	switch v := raw.(type) {
	case nil:
		return map[string]string{}
	case map[string]string:
		if v == nil {
			return map[string]string{}
		}
		return v
	case map[string]any:
		return stringify(v)
	case string:
		return decodeJSONObject([]byte(v))
	case []byte:
		return decodeJSONObject(v)
	case json.RawMessage:
		return decodeJSONObject(v)
	default:
		return map[string]string{}
	}
}

func decodeJSONObject(data []byte) map[string]string {
	if len(data) == 0 {
		return map[string]string{}
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return map[string]string{}
	}
	return stringify(decoded)
}

func stringify(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[k] = string(encoded)
		}
	}
	return out
}
