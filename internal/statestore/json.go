package statestore

import (
	"encoding/json"
	"fmt"
)

func marshalJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling statestore record: %w", err)
	}
	return data, nil
}

func unmarshalJSON(data string, v interface{}) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("unmarshaling statestore record: %w", err)
	}
	return nil
}
