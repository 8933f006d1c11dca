package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RuleProfile is a named bundle of hard-constraint toggles and soft-objective
// weights that the rule resolver overlays onto built-in defaults.
type RuleProfile struct {
	ID        string    `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"account_id"`
	Name      string    `db:"name" json:"name"`
	Rules     JSONMap   `db:"rules" json:"rules"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveRules is the fully-resolved rule map (defaults, overlaid by a
// profile, overlaid by a per-request override) consumed by the constraint
// model builder. Values are either bool toggles or int weights/limits.
type EffectiveRules map[string]interface{}

// Bool reads a rule as a boolean, defaulting to false when absent or of the
// wrong type.
func (r EffectiveRules) Bool(key string) bool {
	v, ok := r[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Int reads a rule as an int, defaulting to 0 when absent or of the wrong
// type.
func (r EffectiveRules) Int(key string) int {
	v, ok := r[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// JSONMap is a generic string-keyed map used for rule bundles and snapshots
// persisted as JSON columns.
type JSONMap map[string]interface{}

// Value marshals the map for storage in a JSON text column.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan unmarshals a JSON text column into the map.
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONMap source type %T", src)
	}
	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}
