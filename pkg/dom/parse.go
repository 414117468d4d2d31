package dom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Parse decodes data into a document tree, preserving object key order and
// number lexemes.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("dom: trailing data after document")
	}
	return node, nil
}

func parseValue(dec *json.Decoder) (*Node, error) {
	token, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dom: unexpected end of document")
		}
		return nil, fmt.Errorf("dom: %w", err)
	}
	return parseToken(dec, token)
}

func parseToken(dec *json.Decoder, token json.Token) (*Node, error) {
	switch value := token.(type) {
	case json.Delim:
		switch value {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return nil, fmt.Errorf("dom: unexpected delimiter %q", value.String())
		}
	case bool:
		return NewBool(value), nil
	case json.Number:
		return &Node{kind: Number, numV: value}, nil
	case string:
		return NewString(value), nil
	case nil:
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("dom: unexpected token %v", token)
	}
}

func parseObject(dec *json.Decoder) (*Node, error) {
	obj := NewObject()
	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("dom: %w", err)
		}
		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("dom: object key is not a string: %v", token)
		}
		child, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, child)
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, fmt.Errorf("dom: %w", err)
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) (*Node, error) {
	arr := NewArray()
	for dec.More() {
		child, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		arr.Append(child)
	}
	if _, err := dec.Token(); err != nil { // closing bracket
		return nil, fmt.Errorf("dom: %w", err)
	}
	return arr, nil
}
