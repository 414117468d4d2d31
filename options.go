package sessync

import (
	"os"
	"time"

	"github.com/goliatone/go-sessync/pkg/activity"
)

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	configDir string
	trashDir  string
	flags     Flags

	logger   Logger
	clock    func() time.Time
	compiler MatcherCompiler

	dirExists  func(path string) bool
	pathExists func(path string) bool
	rename     func(oldpath, newpath string) error

	hooks activity.Hooks
	emit  bool
}

func applyOptions(opts []Option) sessionConfig {
	cfg := sessionConfig{
		flags:      DefaultFlags,
		logger:     noopLogger{},
		clock:      time.Now,
		dirExists:  defaultDirExists,
		pathExists: defaultPathExists,
		rename:     os.Rename,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.compiler == nil {
		cfg.compiler = NewMatcherCompiler(NewExprPredicateEngine())
	}
	return cfg
}

func defaultDirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func defaultPathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// WithConfigDir sets the directory holding the state files.
func WithConfigDir(dir string) Option {
	return func(cfg *sessionConfig) {
		cfg.configDir = dir
	}
}

// WithTrashDir sets the trash root used to resolve relative trashed paths
// found in legacy state files.
func WithTrashDir(dir string) Option {
	return func(cfg *sessionConfig) {
		cfg.trashDir = dir
	}
}

// WithFlags selects the sections to capture and merge.
func WithFlags(flags Flags) Option {
	return func(cfg *sessionConfig) {
		cfg.flags = flags
	}
}

// WithClock overrides the time source, mostly for tests and for hosts that
// already centralize time.
func WithClock(clock func() time.Time) Option {
	return func(cfg *sessionConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithMatcherCompiler overrides how matcher expressions are compiled.
func WithMatcherCompiler(compiler MatcherCompiler) Option {
	return func(cfg *sessionConfig) {
		cfg.compiler = compiler
	}
}

// WithDirProbe overrides the directory-existence check used when merging
// directory histories.
func WithDirProbe(probe func(path string) bool) Option {
	return func(cfg *sessionConfig) {
		if probe != nil {
			cfg.dirExists = probe
		}
	}
}

// WithPathProbe overrides the path-existence check used when resolving
// legacy trash entries.
func WithPathProbe(probe func(path string) bool) Option {
	return func(cfg *sessionConfig) {
		if probe != nil {
			cfg.pathExists = probe
		}
	}
}

// WithRenameFunc overrides the atomic-replace primitive.
func WithRenameFunc(rename func(oldpath, newpath string) error) Option {
	return func(cfg *sessionConfig) {
		if rename != nil {
			cfg.rename = rename
		}
	}
}

// WithActivityHooks registers hooks notified about load/save/merge events.
func WithActivityHooks(hooks ...activity.Hook) Option {
	return func(cfg *sessionConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
		cfg.emit = len(cfg.hooks) > 0
	}
}
