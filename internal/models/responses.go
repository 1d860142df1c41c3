package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v3"
)

// ResponseMap maps question labels to answers and remembers the order in which the
// caller sent them. The zero value is an empty map ready to use.
type ResponseMap struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewResponseMap returns an empty ResponseMap.
func NewResponseMap() ResponseMap {
	return ResponseMap{m: orderedmap.NewOrderedMap[string, string]()}
}

// Set stores an answer. Re-setting a known question keeps its original position.
func (r *ResponseMap) Set(question, answer string) {
	if r.m == nil {
		r.m = orderedmap.NewOrderedMap[string, string]()
	}
	r.m.Set(question, answer)
}

// Len returns the number of question/answer pairs.
func (r ResponseMap) Len() int {
	if r.m == nil {
		return 0
	}
	return r.m.Len()
}

// Each calls fn for every pair in insertion order.
func (r ResponseMap) Each(fn func(question, answer string)) {
	if r.m == nil {
		return
	}
	for q, a := range r.m.AllFromFront() {
		fn(q, a)
	}
}

// UnmarshalJSON decodes a JSON object of strings, keeping key order.
func (r *ResponseMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("responses must be a JSON object")
	}
	out := NewResponseMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("response %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (r ResponseMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var encErr error
	r.Each(func(question, answer string) {
		if encErr != nil {
			return
		}
		k, err := json.Marshal(question)
		if err != nil {
			encErr = err
			return
		}
		v, err := json.Marshal(answer)
		if err != nil {
			encErr = err
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	})
	if encErr != nil {
		return nil, encErr
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
