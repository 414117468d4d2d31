// Package dom implements the document tree that session state travels
// through on its way between the live application model and disk.
//
// A Node is a tagged union (null, bool, number, string, array, object).
// Objects remember the order in which keys were first set and iterate in
// that order, which keeps serialized output deterministic and diffable.
//
// Responsibilities:
//   - Node only holds data; it knows nothing about session semantics.
//   - Parse accepts any JSON document and preserves key order and number
//     lexemes.
//   - Marshal writes indented JSON with keys in insertion order.
//
// Field getters follow a presence-reporting contract: they return whether
// the key exists at all, and assign through the out pointer only when the
// value has the expected type. A present key of the wrong type therefore
// reports true while leaving the destination untouched.
package dom
