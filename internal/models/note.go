// Package models defines the domain types for Jotter.
package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// IDField is the key the store assigns on every note.
const IDField = "id"

// ErrIDExhausted is returned when the largest stored id is math.MaxInt64.
var ErrIDExhausted = errors.New("models: id space exhausted")

// Note is a client-supplied JSON object plus a store-assigned id.
// Field order and nested values are kept exactly as received.
type Note struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// NewNote returns an empty note.
func NewNote() *Note {
	return &Note{fields: orderedmap.New[string, json.RawMessage]()}
}

// ParseNote decodes a single JSON object. Anything else is rejected.
func ParseNote(data []byte) (*Note, error) {
	n := NewNote()
	if err := json.Unmarshal(data, n); err != nil {
		return nil, err
	}
	return n, nil
}

// ID returns the note id when it is a JSON integer.
func (n *Note) ID() (int64, bool) {
	raw, ok := n.fields.Get(IDField)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetID sets the id field. An existing id key keeps its position.
func (n *Note) SetID(id int64) {
	n.fields.Set(IDField, json.RawMessage(strconv.FormatInt(id, 10)))
}

// Get returns the raw JSON value of a field.
func (n *Note) Get(key string) (json.RawMessage, bool) {
	return n.fields.Get(key)
}

// Set stores v, encoded as JSON, under key.
func (n *Note) Set(key string, v any) error {
	raw, err := marshal(v)
	if err != nil {
		return fmt.Errorf("models: encode field %q: %w", key, err)
	}
	n.fields.Set(key, raw)
	return nil
}

// Keys returns the field names in order.
func (n *Note) Keys() []string {
	keys := make([]string, 0, n.fields.Len())
	for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of fields.
func (n *Note) Len() int {
	return n.fields.Len()
}

// Clone returns a deep copy.
func (n *Note) Clone() *Note {
	c := NewNote()
	for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
		c.fields.Set(pair.Key, append(json.RawMessage(nil), pair.Value...))
	}
	return c
}

// MarshalJSON implements json.Marshaler. Values are emitted verbatim
// (compacted) and nothing is HTML-escaped.
func (n *Note) MarshalJSON() ([]byte, error) {
	if n == nil || n.fields == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, pair.Value); err != nil {
			return nil, fmt.Errorf("models: field %q: %w", pair.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Note) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return fmt.Errorf("models: note must be a JSON object")
	}
	fields := orderedmap.New[string, json.RawMessage]()
	if err := fields.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("models: decode note: %w", err)
	}
	n.fields = fields
	return nil
}

// Collection is the ordered list of notes persisted as one JSON array.
type Collection []*Note

// ParseCollection decodes a JSON array of note objects.
func ParseCollection(data []byte) (Collection, error) {
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("models: collection must be a JSON array")
	}
	for i, n := range c {
		if n == nil {
			return nil, fmt.Errorf("models: element %d is not an object", i)
		}
	}
	return c, nil
}

// Encode returns the compact JSON array form.
func (c Collection) Encode() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return marshal([]*Note(c))
}

// MaxID returns the largest integer id, or 0 when there is none above 0.
func (c Collection) MaxID() int64 {
	var highest int64
	for _, n := range c {
		if id, ok := n.ID(); ok && id > highest {
			highest = id
		}
	}
	return highest
}

// NextID is MaxID()+1. It fails with ErrIDExhausted instead of wrapping.
func (c Collection) NextID() (int64, error) {
	return NextAfter(c.MaxID())
}

// NextAfter returns maxID+1, or ErrIDExhausted when that would overflow.
func NextAfter(maxID int64) (int64, error) {
	if maxID == math.MaxInt64 {
		return 0, ErrIDExhausted
	}
	return maxID + 1, nil
}

// Without returns a new collection excluding every note with the given id.
// Order of the remaining notes is unchanged.
func (c Collection) Without(id int64) Collection {
	out := make(Collection, 0, len(c))
	for _, n := range c {
		if nid, ok := n.ID(); ok && nid == id {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Checksum returns the hex SHA-256 of the compact encoding.
func (c Collection) Checksum() (string, error) {
	data, err := c.Encode()
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}

// Sum returns the hex SHA-256 of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// marshal encodes v like json.Marshal without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
