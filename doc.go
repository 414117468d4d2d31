// Package sessync captures a host application's session state (pane
// layout, navigation history, filters, marks, bookmarks, registers,
// directory stack, trash records, histories, associations, commands and
// options) into a structured document, writes it atomically to a shared
// state file, and merges it against whatever another concurrently running
// instance wrote so that no instance clobbers another's contributions.
// It also transparently upgrades an older line-oriented state format into
// the same document shape.
package sessync
