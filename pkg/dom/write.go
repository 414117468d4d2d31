package dom

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Marshal serializes the document as indented JSON with object keys in
// insertion order.
func (n *Node) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, n, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

const indentUnit = "  "

func write(buf *bytes.Buffer, n *Node, depth int) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		if n.boolV {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if n.numV == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(string(n.numV))
		}
	case String:
		return writeString(buf, n.strV)
	case Array:
		return writeArray(buf, n, depth)
	case Object:
		return writeObject(buf, n, depth)
	}
	return nil
}

func writeString(buf *bytes.Buffer, value string) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

func writeArray(buf *bytes.Buffer, n *Node, depth int) error {
	if len(n.items) == 0 {
		buf.WriteString("[]")
		return nil
	}
	buf.WriteString("[\n")
	inner := strings.Repeat(indentUnit, depth+1)
	for i, item := range n.items {
		buf.WriteString(inner)
		if err := write(buf, item, depth+1); err != nil {
			return err
		}
		if i != len(n.items)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(strings.Repeat(indentUnit, depth))
	buf.WriteByte(']')
	return nil
}

func writeObject(buf *bytes.Buffer, n *Node, depth int) error {
	if len(n.keys) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteString("{\n")
	inner := strings.Repeat(indentUnit, depth+1)
	for i, key := range n.keys {
		buf.WriteString(inner)
		if err := writeString(buf, key); err != nil {
			return err
		}
		buf.WriteString(": ")
		if err := write(buf, n.fields[key], depth+1); err != nil {
			return err
		}
		if i != len(n.keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(strings.Repeat(indentUnit, depth))
	buf.WriteByte('}')
	return nil
}
