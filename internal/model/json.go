package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONList is a list stored as a JSON text column. A nil list encodes as [].
type JSONList[T any] []T

func (l JSONList[T]) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(l))
}

func (l *JSONList[T]) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = JSONList[T]{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into JSON list", src)
	}
	if len(data) == 0 {
		*l = JSONList[T]{}
		return nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}
	*l = out
	return nil
}

func (l JSONList[T]) Value() (driver.Value, error) {
	data, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
