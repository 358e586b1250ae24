package workflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// Variable is a typed process variable in the engine's REST format
type Variable struct {
	Value interface{} `json:"value"`
	Type  string      `json:"type"`
}

// dateLayout is the engine's default date format
const dateLayout = "2006-01-02T15:04:05.000-0700"

// ToVariable converts a Go value to a typed variable. Maps and slices are
// sent as Json, anything unrecognized as its String form.
func ToVariable(value interface{}) Variable {
	switch v := value.(type) {
	case bool:
		return Variable{Value: v, Type: "Boolean"}
	case int:
		return Variable{Value: v, Type: "Integer"}
	case int32:
		return Variable{Value: v, Type: "Integer"}
	case int64:
		return Variable{Value: v, Type: "Long"}
	case float32:
		return Variable{Value: v, Type: "Double"}
	case float64:
		return Variable{Value: v, Type: "Double"}
	case string:
		return Variable{Value: v, Type: "String"}
	case time.Time:
		return Variable{Value: v.Format(dateLayout), Type: "Date"}
	case map[string]interface{}, []interface{}, []string, map[string]string:
		raw, err := json.Marshal(v)
		if err != nil {
			return Variable{Value: fmt.Sprint(v), Type: "String"}
		}
		return Variable{Value: string(raw), Type: "Json"}
	case nil:
		return Variable{Value: nil, Type: "Null"}
	default:
		return Variable{Value: fmt.Sprint(v), Type: "String"}
	}
}

// ToVariables converts every value of vars
func ToVariables(vars map[string]interface{}) map[string]Variable {
	out := make(map[string]Variable, len(vars))
	for k, v := range vars {
		out[k] = ToVariable(v)
	}
	return out
}
