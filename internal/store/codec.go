package store

import (
	json "github.com/goccy/go-json"
)

// Encode converts a typed document into the tree's JSON value form.
func Encode(in any) (Value, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var v Value
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode converts a tree value into a typed document. A nil value leaves out
// untouched, mirroring a read of an absent node.
func Decode(v Value, out any) error {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
