package sessync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goliatone/go-sessync/pkg/activity"
	"github.com/goliatone/go-sessync/pkg/dom"
)

// Names of the state files inside the configured directory. The legacy
// file is read as a fallback only, never written.
const (
	InfoFileName   = "vifminfo.json"
	LegacyFileName = "vifminfo"
)

// Activity verbs emitted on lifecycle events.
const (
	VerbLoaded = "state.loaded"
	VerbSaved  = "state.saved"
	VerbMerged = "state.merged"
)

// Session synchronizes a live model with the state file shared between
// instances. It holds no state besides the configuration and the file
// fingerprint recorded at the last successful read or write.
type Session struct {
	model   *Model
	cfg     sessionConfig
	mon     filemon
	emitter *activity.Emitter
}

// New constructs a Session around model.
func New(model *Model, opts ...Option) *Session {
	cfg := applyOptions(opts)
	return &Session{
		model:   model,
		cfg:     cfg,
		emitter: activity.NewEmitter(cfg.hooks, activity.Config{Enabled: cfg.emit}),
	}
}

// InfoFile returns the path of the primary state file.
func (s *Session) InfoFile() string {
	return filepath.Join(s.cfg.configDir, InfoFileName)
}

// Load reads the state file and applies it to the model. A missing or
// unparseable primary file falls back to the legacy file, and a missing
// legacy file falls back to an empty state; neither is an error. reread
// marks a reload of an already-initialized session, which keeps one-time
// interactive properties untouched.
func (s *Session) Load(reread bool) error {
	infoFile := s.InfoFile()

	source := "primary"
	doc := s.readPrimary(infoFile)
	if doc == nil {
		source = "legacy"
		doc = s.readLegacy(filepath.Join(s.cfg.configDir, LegacyFileName))
	}
	if doc == nil {
		source = "empty"
		doc = dom.NewObject()
	}

	s.Apply(doc, reread)

	s.mon = monFromFile(infoFile)
	if !reread && s.model.DirStack != nil {
		s.model.DirStack.Freeze()
	}

	s.emit(VerbLoaded, infoFile, map[string]any{
		"source": source,
		"reread": reread,
	})
	return nil
}

func (s *Session) readPrimary(infoFile string) *dom.Node {
	data, err := os.ReadFile(infoFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.cfg.logger.LogEvent(LogEvent{Op: "load", Detail: infoFile, Err: err})
		}
		return nil
	}
	doc, err := dom.Parse(data)
	if err != nil {
		s.cfg.logger.LogEvent(LogEvent{Op: "load", Detail: infoFile, Err: err})
		return nil
	}
	return doc
}

func (s *Session) readLegacy(legacyFile string) *dom.Node {
	f, err := os.Open(legacyFile)
	if err != nil {
		return nil
	}
	defer f.Close()
	return readLegacyInfo(f, &s.cfg)
}

// Save captures the model and writes it to the state file through a
// uniquely named temp copy, merging first when the file changed under
// this instance since its last touch. The rename at the end is the only
// step that affects the real file, so a crash mid-save never corrupts it.
func (s *Session) Save() error {
	infoFile := s.InfoFile()
	tmpFile := fmt.Sprintf("%s_%d", infoFile, os.Getpid())

	if readable(infoFile) {
		if err := copyFile(infoFile, tmpFile); err != nil {
			return wrapStateError("save", infoFile, err)
		}
	}

	changed := !monFromFile(infoFile).equal(s.mon)

	current := s.Capture()

	merged := false
	if changed {
		if admixture := s.readAdmixture(tmpFile); admixture != nil {
			s.Merge(current, admixture)
			merged = true
		}
	}

	data, err := current.Marshal()
	if err != nil {
		os.Remove(tmpFile)
		return wrapStateError("save", infoFile, err)
	}
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		os.Remove(tmpFile)
		return wrapStateError("save", infoFile, err)
	}

	s.mon = monFromFile(tmpFile)

	if err := s.cfg.rename(tmpFile, infoFile); err != nil {
		s.cfg.logger.LogEvent(LogEvent{
			Op:     "save",
			Detail: "can't replace " + infoFile + " with its temporary copy",
			Err:    err,
		})
		os.Remove(tmpFile)
		return wrapStateError("save", infoFile, err)
	}

	if merged {
		s.emit(VerbMerged, infoFile, nil)
	}
	s.emit(VerbSaved, infoFile, map[string]any{"merged": merged})
	return nil
}

func (s *Session) readAdmixture(tmpFile string) *dom.Node {
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil
	}
	doc, err := dom.Parse(data)
	if err != nil {
		s.cfg.logger.LogEvent(LogEvent{Op: "merge", Detail: tmpFile, Err: err})
		return nil
	}
	return doc
}

func (s *Session) emit(verb, path string, metadata map[string]any) {
	if !s.emitter.Enabled() {
		return
	}
	err := s.emitter.Emit(context.Background(), activity.Event{
		Verb:       verb,
		Path:       path,
		Metadata:   metadata,
		OccurredAt: s.cfg.clock(),
	})
	if err != nil {
		s.cfg.logger.LogEvent(LogEvent{Op: "emit", Detail: verb, Err: err})
	}
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
