package sessync

import "time"

// Flags selects which document sections are captured on save and merged
// against concurrent writers. A section whose flag is unset is neither
// serialized nor merged, which leaves foreign on-disk content untouched.
type Flags uint32

const (
	FlagOptions Flags = 1 << iota
	FlagFiletypes
	FlagCommands
	FlagMarks
	FlagBookmarks
	FlagTUI
	FlagDHistory
	FlagState
	FlagCHistory
	FlagSHistory
	FlagPHistory
	FlagFHistory
	FlagRegisters
	FlagDirStack
	FlagSaveDirs
	FlagColorScheme
)

// FlagAll enables every section.
const FlagAll = FlagColorScheme<<1 - 1

// DefaultFlags matches the sections an interactive host typically persists.
const DefaultFlags = FlagMarks | FlagBookmarks | FlagTUI | FlagState |
	FlagCHistory | FlagSHistory | FlagColorScheme

// Has reports whether all bits of other are set.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// ValidRegisters is the fixed register alphabet; entries under any other
// name are rejected.
const ValidRegisters = `"_abcdefghijklmnopqrstuvwxyz0123456789`

// ValidMarks is the fixed mark alphabet.
const ValidMarks = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HistoryEntry is one visited directory of a pane.
type HistoryEntry struct {
	Dir    string
	File   string
	RelPos int
}

// Filters holds the filter state of a pane. Manual and Auto are matcher
// expressions.
type Filters struct {
	Invert bool
	Dot    bool
	Manual string
	Auto   string
}

// Mark is a single-character named location.
type Mark struct {
	Name byte
	Dir  string
	File string
	Ts   time.Time
}

// Bookmark is a tagged path.
type Bookmark struct {
	Path string
	Tags string
	Ts   time.Time
}

// AssocKind selects one of the three association lists.
type AssocKind uint8

const (
	AssocRegular AssocKind = iota
	AssocExec
	AssocViewer
)

func (k AssocKind) node() string {
	switch k {
	case AssocExec:
		return "xassocs"
	case AssocViewer:
		return "viewers"
	default:
		return "assocs"
	}
}

// Assoc binds a matcher expression to a command, with an optional
// description. Builtin entries exist only in memory and are never
// persisted.
type Assoc struct {
	Matchers    string
	Cmd         string
	Description string
	Builtin     bool
}

// Command is a user-defined command.
type Command struct {
	Name string
	Body string
}

// Register is a named ordered file list.
type Register struct {
	Name  byte
	Files []string
}

// DirStackEntry is one saved pair of pane locations.
type DirStackEntry struct {
	LeftDir   string
	LeftFile  string
	RightDir  string
	RightFile string
}

// TrashEntry links a trashed file to its original location.
type TrashEntry struct {
	Trashed  string
	Original string
}

// HistoryKind identifies one of the flat history lists.
type HistoryKind uint8

const (
	HistCommand HistoryKind = iota
	HistSearch
	HistPrompt
	HistFilter
)

func (k HistoryKind) node() string {
	switch k {
	case HistSearch:
		return "search-hist"
	case HistPrompt:
		return "prompt-hist"
	case HistFilter:
		return "lfilt-hist"
	default:
		return "cmd-hist"
	}
}

func (k HistoryKind) flag() Flags {
	switch k {
	case HistSearch:
		return FlagSHistory
	case HistPrompt:
		return FlagPHistory
	case HistFilter:
		return FlagFHistory
	default:
		return FlagCHistory
	}
}

var historyKinds = []HistoryKind{HistCommand, HistSearch, HistPrompt, HistFilter}

// OptionKind identifies how an option value is rendered.
type OptionKind uint8

const (
	OptionBool OptionKind = iota
	OptionInt
	OptionString
)

// OptionValue is one option of the host with its current value.
type OptionValue struct {
	Name string
	Kind OptionKind
	Bool bool
	Int  int
	Str  string
}

// Sort spec limits. Valid sort keys are nonzero integers whose magnitude
// does not exceed MaxSortKey; SortNone marks unused trailing slots.
const (
	MaxSortFields = 8
	MaxSortKey    = 32
	SortNone      = 0
	SortDefault   = 1
)

// SortSpec lists sort keys by priority.
type SortSpec [MaxSortFields]int

// HistoryList is the capability surface of one flat history. Items run
// oldest to newest; Append adds the newest entry and is expected to grow
// capacity instead of dropping data when the list is full.
type HistoryList interface {
	Items() []string
	Append(item string)
}

// View exposes the per-pane state the engine captures and restores.
type View interface {
	History() []HistoryEntry
	AppendHistory(entry HistoryEntry)
	ContainsHistory(dir string) bool
	// SyncHistory flushes the pane's current position into its history
	// buffer so the entry being viewed is always captured.
	SyncHistory()
	CurrentDir() string
	SetCurrentDir(dir string)
	Filters() Filters
	SetFilters(f Filters)
	Sort() SortSpec
	SetSort(s SortSpec)
	Options() []OptionValue
	ApplyOption(line string) error
}

// MarkStore holds single-character marks.
type MarkStore interface {
	List() []Mark
	Set(m Mark)
	// IsOlder reports whether the mark under name is strictly older than
	// the given time (an absent mark counts as older).
	IsOlder(name byte, than time.Time) bool
}

// BookmarkStore holds tagged paths keyed by path.
type BookmarkStore interface {
	List() []Bookmark
	Set(b Bookmark) error
	IsOlder(path string, than time.Time) bool
}

// CommandStore holds user-defined commands keyed by name.
type CommandStore interface {
	List() []Command
	Define(name, body string) error
}

// AssocStore holds the three association lists.
type AssocStore interface {
	List(kind AssocKind) []Assoc
	Set(kind AssocKind, matchers, cmd string) error
	Exists(kind AssocKind, matchers, cmd string) bool
}

// RegisterStore holds named file lists.
type RegisterStore interface {
	List() []Register
	Append(name byte, file string)
}

// DirStack holds saved pane-location pairs. Freeze records a baseline;
// Changed reports mutations since the last Freeze.
type DirStack interface {
	List() []DirStackEntry
	Push(e DirStackEntry)
	Freeze()
	Changed() bool
}

// TrashStore links trashed files to their origins.
type TrashStore interface {
	List() []TrashEntry
	Add(original, trashed string) error
	Has(original, trashed string) bool
}

// OptionStore exposes global options.
type OptionStore interface {
	List() []OptionValue
	Apply(line string) error
}

// TUIState is the window layout of the host.
type TUIState struct {
	ActivePane    int
	Preview       bool
	SplitPos      int
	SplitVertical bool
	SplitExpanded bool
}

// Model bundles the live application state the engine reads and writes.
// The engine keeps no reference to it between calls beyond the Session the
// host constructed.
type Model struct {
	Views      [2]View
	TUI        *TUIState
	HistoryCap int

	Options   OptionStore
	Assocs    AssocStore
	Commands  CommandStore
	Marks     MarkStore
	Bookmarks BookmarkStore
	Registers RegisterStore
	DirStack  DirStack
	Trash     TrashStore

	CmdHistory    HistoryList
	SearchHistory HistoryList
	PromptHistory HistoryList
	FilterHistory HistoryList

	Multiplexer bool
	ColorScheme string
}

func (m *Model) history(kind HistoryKind) HistoryList {
	switch kind {
	case HistSearch:
		return m.SearchHistory
	case HistPrompt:
		return m.PromptHistory
	case HistFilter:
		return m.FilterHistory
	default:
		return m.CmdHistory
	}
}
