package vrm

import "strings"

// ExpressionPrefix is prepended by loaders to expression controller names.
const ExpressionPrefix = "VRMExpression_"

// PresetUnknown is used for custom expressions with no VRM 0.x preset.
const PresetUnknown = "unknown"

var presetNames = map[string]string{
	"neutral":    "neutral",
	"aa":         "a",
	"ih":         "i",
	"ou":         "u",
	"ee":         "e",
	"oh":         "o",
	"blink":      "blink",
	"blinkLeft":  "blink_l",
	"blinkRight": "blink_r",
	"angry":      "angry",
	"happy":      "joy",
	"sad":        "sorrow",
	"lookUp":     "lookup",
	"lookDown":   "lookdown",
	"lookLeft":   "lookleft",
	"lookRight":  "lookright",
}

// PresetName maps a VRM 1.0 expression name to a VRM 0.x blend shape preset.
func PresetName(expression string) string {
	if p, ok := presetNames[expression]; ok {
		return p
	}
	return PresetUnknown
}

// ExpressionName maps a VRM 0.x preset back to its VRM 1.0 expression name.
// Unknown presets yield the empty string.
func ExpressionName(preset string) string {
	for k, v := range presetNames {
		if v == preset {
			return k
		}
	}
	return ""
}

// GroupName strips the loader prefix from an expression controller name.
func GroupName(name string) string {
	return strings.TrimPrefix(name, ExpressionPrefix)
}
