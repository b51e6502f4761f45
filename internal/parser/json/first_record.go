// Package json reads the field names of JSON record collections.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"colmerge/internal/schema"
)

// ReadFirstRecordKeys returns the keys of the first record of a JSON array of
// objects, in document order.
//
// Behavior:
//   - `[]` and `{}` are empty collections and yield an empty key list, as do
//     the empty scalars null, false, 0 and "".
//   - Only the first record's keys are reported. A key repeated inside that
//     record keeps its first position.
//   - Later records are decoded for syntax only, so a broken tail still fails
//     the whole source.
//
// Any other scalar root, a non-empty root object, a first element that is not an
// object, trailing data after the root value, or any syntax error is
// schema.ErrMalformedSource.
func ReadFirstRecordKeys(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, schema.Malformed("empty document", nil)
	}
	if err != nil {
		return nil, schema.Malformed("parse json", err)
	}

	keys := []string{}
	switch tok {
	case json.Delim('['):
		if dec.More() {
			if keys, err = readObjectKeys(dec); err != nil {
				return nil, err
			}
			for dec.More() {
				var skip json.RawMessage
				if err := dec.Decode(&skip); err != nil {
					return nil, schema.Malformed("parse json", err)
				}
			}
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}

	case json.Delim('{'):
		if dec.More() {
			return nil, schema.Malformed("root object is not a record collection (want an array of objects)", nil)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}

	default:
		if !emptyScalar(tok) {
			return nil, schema.Malformed(fmt.Sprintf("unsupported root token %v (want an array of objects)", tok), nil)
		}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, schema.Malformed("trailing data after root value", nil)
		}
		return nil, schema.Malformed("parse json", err)
	}
	return keys, nil
}

// readObjectKeys consumes one object and returns its keys in order. Values are
// skipped without being materialized into maps.
func readObjectKeys(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, schema.Malformed("parse json", err)
	}
	if tok != json.Delim('{') {
		return nil, schema.Malformed(fmt.Sprintf("first record is %v, not an object", describe(tok)), nil)
	}

	keys := []string{}
	seen := map[string]bool{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, schema.Malformed("parse json", err)
		}
		k, ok := kt.(string)
		if !ok {
			return nil, schema.Malformed(fmt.Sprintf("unexpected object key %v", kt), nil)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, schema.Malformed(fmt.Sprintf("parse json value of %q", k), err)
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return keys, nil
}

func emptyScalar(tok json.Token) bool {
	switch t := tok.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case float64:
		return t == 0
	}
	return false
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return schema.Malformed("parse json", err)
	}
	if tok != want {
		return schema.Malformed(fmt.Sprintf("expected %q, got %v", want, tok), nil)
	}
	return nil
}

func describe(tok json.Token) string {
	switch t := tok.(type) {
	case json.Delim:
		if t == '[' {
			return "an array"
		}
		return fmt.Sprintf("%q", t)
	case string:
		return "a string"
	case nil:
		return "null"
	case bool:
		return "a boolean"
	default:
		return "a number"
	}
}
