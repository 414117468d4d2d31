package sessync

import (
	"os"
	"time"
)

// filemon is a modification fingerprint of a file. Two equal fingerprints
// of an existing file mean the file was not replaced in between, which is
// the only coordination mechanism between concurrently running instances.
type filemon struct {
	ok      bool
	modTime time.Time
	size    int64
}

func monFromFile(path string) filemon {
	info, err := os.Stat(path)
	if err != nil {
		return filemon{}
	}
	return filemon{ok: true, modTime: info.ModTime(), size: info.Size()}
}

func (m filemon) equal(other filemon) bool {
	if !m.ok || !other.ok {
		return false
	}
	return m.modTime.Equal(other.modTime) && m.size == other.size
}
