package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringList and HeaderMap are stored as JSON text columns. GORM has no
// first-class list/map column type in this project's dependency set (the
// teacher never needed one; gorm.io/datatypes is not part of its stack), so
// these implement database/sql's Scanner/Valuer directly — the smallest
// portable way to round-trip a slice or map through a single TEXT column.

// StringList is an ordered list of strings (used for Message.References).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	b, err := toBytes(value)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// HeaderMap preserves the raw RFC 5322 header map of a Message.
type HeaderMap map[string]string

func (h HeaderMap) Value() (driver.Value, error) {
	if h == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(h))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (h *HeaderMap) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}
	b, err := toBytes(value)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*h = nil
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*h = out
	return nil
}

func toBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported type for JSON column scan")
	}
}
