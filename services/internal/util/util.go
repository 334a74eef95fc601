// services/internal/util/util.go
package util

import "encoding/json"

// DecodeJSON decodes src into dst. src may be raw JSON ([]byte or string) or
// an already-decoded value such as a bus payload map.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case *T:
		*dst = *v
		return nil
	case T:
		*dst = v
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
