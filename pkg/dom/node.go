package dom

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind identifies the variant a Node holds.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// Node is one value in a document tree.
type Node struct {
	kind   Kind
	boolV  bool
	numV   json.Number
	strV   string
	items  []*Node
	keys   []string
	fields map[string]*Node
}

// NewObject returns an empty object node.
func NewObject() *Node {
	return &Node{kind: Object, fields: map[string]*Node{}}
}

// NewArray returns an empty array node.
func NewArray() *Node {
	return &Node{kind: Array}
}

// NewString returns a string node holding value.
func NewString(value string) *Node {
	return &Node{kind: String, strV: value}
}

// NewBool returns a bool node holding value.
func NewBool(value bool) *Node {
	return &Node{kind: Bool, boolV: value}
}

// NewInt returns a number node holding value.
func NewInt(value int) *Node {
	return &Node{kind: Number, numV: json.Number(strconv.Itoa(value))}
}

// NewFloat returns a number node holding value. Integral values keep an
// integer lexeme so timestamps survive round trips unchanged.
func NewFloat(value float64) *Node {
	if value == math.Trunc(value) && math.Abs(value) < 1e15 {
		return &Node{kind: Number, numV: json.Number(strconv.FormatInt(int64(value), 10))}
	}
	return &Node{kind: Number, numV: json.Number(strconv.FormatFloat(value, 'f', -1, 64))}
}

// NewNull returns a null node.
func NewNull() *Node {
	return &Node{kind: Null}
}

// Kind reports the node's variant. A nil node reports Null.
func (n *Node) Kind() Kind {
	if n == nil {
		return Null
	}
	return n.kind
}

// Set stores child under key, replacing any existing value while keeping the
// key's original position. No-op on non-objects.
func (n *Node) Set(key string, child *Node) {
	if n == nil || n.kind != Object {
		return
	}
	if child == nil {
		child = NewNull()
	}
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = child
}

// Get returns the child stored under key or nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.kind != Object {
		return nil
	}
	return n.fields[key]
}

// Has reports whether key is present.
func (n *Node) Has(key string) bool {
	if n == nil || n.kind != Object {
		return false
	}
	_, ok := n.fields[key]
	return ok
}

// Keys returns object keys in insertion order. The slice is shared; callers
// must not modify it.
func (n *Node) Keys() []string {
	if n == nil || n.kind != Object {
		return nil
	}
	return n.keys
}

// Append adds child to an array node.
func (n *Node) Append(child *Node) {
	if n == nil || n.kind != Array {
		return
	}
	if child == nil {
		child = NewNull()
	}
	n.items = append(n.items, child)
}

// AppendString adds a string element to an array node.
func (n *Node) AppendString(value string) {
	n.Append(NewString(value))
}

// Len returns the number of array elements or object keys.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.kind {
	case Array:
		return len(n.items)
	case Object:
		return len(n.keys)
	default:
		return 0
	}
}

// At returns the i-th array element or nil when out of range.
func (n *Node) At(i int) *Node {
	if n == nil || n.kind != Array || i < 0 || i >= len(n.items) {
		return nil
	}
	return n.items[i]
}

// SetBool stores a bool child under key.
func (n *Node) SetBool(key string, value bool) {
	n.Set(key, NewBool(value))
}

// SetInt stores an integer child under key.
func (n *Node) SetInt(key string, value int) {
	n.Set(key, NewInt(value))
}

// SetFloat stores a number child under key.
func (n *Node) SetFloat(key string, value float64) {
	n.Set(key, NewFloat(value))
}

// SetString stores a string child under key.
func (n *Node) SetString(key string, value string) {
	n.Set(key, NewString(value))
}

// AddObject stores a fresh object under key and returns it.
func (n *Node) AddObject(key string) *Node {
	child := NewObject()
	n.Set(key, child)
	return child
}

// AddArray stores a fresh array under key and returns it.
func (n *Node) AddArray(key string) *Node {
	child := NewArray()
	n.Set(key, child)
	return child
}

// AppendObject appends a fresh object to an array node and returns it.
func (n *Node) AppendObject() *Node {
	child := NewObject()
	n.Append(child)
	return child
}

// GetBool assigns the bool stored under key to *out when present with the
// right type. Returns whether key is present at all.
func (n *Node) GetBool(key string, out *bool) bool {
	child := n.Get(key)
	if child != nil && child.kind == Bool {
		*out = child.boolV
	}
	return child != nil
}

// GetInt assigns the number stored under key to *out when present with the
// right type. Returns whether key is present at all.
func (n *Node) GetInt(key string, out *int) bool {
	child := n.Get(key)
	if child != nil && child.kind == Number {
		if v, err := child.numV.Float64(); err == nil {
			*out = int(v)
		}
	}
	return child != nil
}

// GetFloat assigns the number stored under key to *out when present with the
// right type. Returns whether key is present at all.
func (n *Node) GetFloat(key string, out *float64) bool {
	child := n.Get(key)
	if child != nil && child.kind == Number {
		if v, err := child.numV.Float64(); err == nil {
			*out = v
		}
	}
	return child != nil
}

// GetString assigns the string stored under key to *out when present with
// the right type. Returns whether key is present at all.
func (n *Node) GetString(key string, out *string) bool {
	child := n.Get(key)
	if child != nil && child.kind == String {
		*out = child.strV
	}
	return child != nil
}

// AsBool returns the node's bool value or false.
func (n *Node) AsBool() bool {
	if n == nil || n.kind != Bool {
		return false
	}
	return n.boolV
}

// AsFloat returns the node's numeric value or zero.
func (n *Node) AsFloat() float64 {
	if n == nil || n.kind != Number {
		return 0
	}
	v, err := n.numV.Float64()
	if err != nil {
		return 0
	}
	return v
}

// AsString returns the node's string value or the empty string.
func (n *Node) AsString() string {
	if n == nil || n.kind != String {
		return ""
	}
	return n.strV
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{kind: n.kind, boolV: n.boolV, numV: n.numV, strV: n.strV}
	switch n.kind {
	case Array:
		out.items = make([]*Node, len(n.items))
		for i, item := range n.items {
			out.items[i] = item.Clone()
		}
	case Object:
		out.keys = append([]string(nil), n.keys...)
		out.fields = make(map[string]*Node, len(n.fields))
		for key, child := range n.fields {
			out.fields[key] = child.Clone()
		}
	}
	return out
}
