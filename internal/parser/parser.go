// Package parser interprets raw model replies.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when a reply is not a JSON list of string triples.
var ErrMalformedOutput = errors.New("malformed model output")

// Triple is a subject-predicate-object statement. It encodes as a 3-element JSON array.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

func (t Triple) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{t.Subject, t.Predicate, t.Object})
}

// UnmarshalJSON accepts only an array of exactly three JSON strings.
func (t *Triple) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("triple is not an array: %w", err)
	}
	if len(fields) != 3 {
		return fmt.Errorf("triple has %d fields, want 3", len(fields))
	}
	var out [3]string
	for i, f := range fields {
		f = bytes.TrimSpace(f)
		if len(f) == 0 || f[0] != '"' {
			return fmt.Errorf("triple field %d is not a string", i)
		}
		if err := json.Unmarshal(f, &out[i]); err != nil {
			return fmt.Errorf("triple field %d: %w", i, err)
		}
	}
	t.Subject, t.Predicate, t.Object = out[0], out[1], out[2]
	return nil
}

func (t Triple) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.Subject, t.Predicate, t.Object)
}

// ParseTriples decodes a reply into triples. Markdown code fences around the JSON are
// stripped first. If the reply is not a JSON array, or any element is not exactly three
// strings, it returns an empty non-nil slice and an error wrapping ErrMalformedOutput.
// The caller decides whether to log and continue.
func ParseTriples(reply string) ([]Triple, error) {
	cleaned := cleanJSON(reply)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return []Triple{}, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	if items == nil {
		return []Triple{}, fmt.Errorf("%w: reply is null", ErrMalformedOutput)
	}

	triples := make([]Triple, 0, len(items))
	for i, item := range items {
		var t Triple
		if err := t.UnmarshalJSON(item); err != nil {
			return []Triple{}, fmt.Errorf("%w: element %d: %w", ErrMalformedOutput, i, err)
		}
		triples = append(triples, t)
	}
	return triples, nil
}

// FreeText accepts a reply verbatim.
func FreeText(reply string) string {
	return reply
}

func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
