package jsonpath

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jacoelho/jsonpath/orderedmap"
)

// loadData prepares query input. Strings, byte slices and readers are
// decoded as JSON text; anything else is assumed to be an already
// decoded JSON value and used as is.
func loadData(data any) (any, error) {
	switch d := data.(type) {
	case string:
		return decodeJSON(strings.NewReader(d))
	case []byte:
		return decodeJSON(bytes.NewReader(d))
	case io.Reader:
		return decodeJSON(d)
	default:
		return data, nil
	}
}

// DecodeJSON decodes JSON text into the value representation the engine
// operates on: objects become insertion-ordered maps, arrays []any, and
// numbers stay exact as json.Number.
func DecodeJSON(data []byte) (any, error) {
	return decodeJSON(bytes.NewReader(data))
}

// EncodeJSON serializes a value produced by the engine back to JSON
// text, keeping object member order.
func EncodeJSON(value any) ([]byte, error) {
	return json.Marshal(value)
}

// decodeJSON walks the decoder's token stream so object member order is
// captured; a plain json.Unmarshal into map[string]any would discard it.
func decodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	value, err := decodeNext(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return value, nil
}

func decodeNext(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); ok {
		switch delim {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
	return tok, nil
}

func decodeObject(dec *json.Decoder) (*orderedmap.Map, error) {
	obj := orderedmap.New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		value, err := decodeNext(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, value)
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	arr := make([]any, 0)
	for dec.More() {
		value, err := decodeNext(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, value)
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return nil, err
	}
	return arr, nil
}
