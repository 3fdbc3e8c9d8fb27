package reststore

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/yungbote/lms-backend/internal/data/store"
)

// encodeRow turns an entity into a snake_case column map. Fields tagged
// gorm:"-" are resolved elsewhere and never sent as columns.
func encodeRow(row any) (map[string]any, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for _, name := range store.VirtualFields(reflect.TypeOf(row)) {
		delete(m, name)
	}
	out, _ := store.KeysToSnake(m).(map[string]any)
	return out, nil
}

// decodeRows converts a snake_case JSON array into entities.
func decodeRows[T any](body []byte) ([]T, error) {
	maps, err := decodeMaps(body)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(maps)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// decodeMaps converts a snake_case JSON array into camelCase maps.
func decodeMaps(body []byte) ([]map[string]any, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(raw))
	for _, m := range raw {
		if cm, ok := store.KeysToCamel(m).(map[string]any); ok {
			out = append(out, cm)
		}
	}
	return out, nil
}

func patchBody(p store.Patch) map[string]any {
	out, _ := store.KeysToSnake(p).(map[string]any)
	return out
}
