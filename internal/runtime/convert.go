package runtime

import (
	"fmt"

	"github.com/risor-io/risor/object"
)

// --- Map extraction helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getOptionalInt(m map[string]object.Object, key string) (int, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case *object.Int:
		return int(n.Value()), true
	case *object.Float:
		return int(n.Value()), true
	}
	return 0, false
}

// toGo converts a Risor value into the plain Go shape configuration
// decoding produces.
func toGo(obj object.Object) any {
	switch v := obj.(type) {
	case *object.Bool:
		return v.Value()
	case *object.Int:
		return v.Value()
	case *object.Float:
		return v.Value()
	case *object.String:
		return v.Value()
	case *object.List:
		items := v.Value()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = toGo(it)
		}
		return out
	case *object.NilType:
		return nil
	}
	return obj.Inspect()
}
