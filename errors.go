package sessync

import (
	"errors"
	"fmt"
	"strings"
)

// StateError captures where a load/save/merge failure happened alongside the
// originating error.
type StateError struct {
	Op      string
	Path    string
	Section string
	Err     error
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	section := e.Section
	if section == "" {
		section = "-"
	}
	return fmt.Sprintf("sessync: %s %s section=%s: %v", e.Op, describePath(e.Path), section, e.Err)
}

func (e *StateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describePath(path string) string {
	if path == "" {
		return "path=<none>"
	}
	return fmt.Sprintf("path=%q", path)
}

func wrapStateError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var stateErr *StateError
	if errors.As(err, &stateErr) {
		if stateErr.Op == "" {
			stateErr.Op = op
		}
		if stateErr.Path == "" {
			stateErr.Path = path
		}
		return stateErr
	}

	if strings.HasPrefix(err.Error(), "sessync:") {
		return err
	}
	return &StateError{Op: op, Path: path, Err: err}
}
