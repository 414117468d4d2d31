package sessync

import (
	"sort"
	"time"
)

// NewMemoryModel builds a Model backed by plain in-memory stores. It is
// what the tests run against and a reasonable starting point for hosts
// that do not have their own state containers yet.
func NewMemoryModel(historyCap int) *Model {
	return &Model{
		Views:      [2]View{newMemoryView(), newMemoryView()},
		TUI:        &TUIState{SplitPos: -1},
		HistoryCap: historyCap,

		Options:   &memoryOptions{},
		Assocs:    &memoryAssocs{},
		Commands:  &memoryCommands{defs: map[string]string{}},
		Marks:     &memoryMarks{marks: map[byte]Mark{}},
		Bookmarks: &memoryBookmarks{bmarks: map[string]Bookmark{}},
		Registers: &memoryRegisters{regs: map[byte][]string{}},
		DirStack:  &memoryDirStack{},
		Trash:     &memoryTrash{},

		CmdHistory:    &memoryHistory{},
		SearchHistory: &memoryHistory{},
		PromptHistory: &memoryHistory{},
		FilterHistory: &memoryHistory{},
	}
}

type memoryView struct {
	history    []HistoryEntry
	currentDir string
	filters    Filters
	sortSpec   SortSpec
	options    []OptionValue
	applied    []string
}

func newMemoryView() *memoryView {
	return &memoryView{sortSpec: SortSpec{SortDefault}}
}

func (v *memoryView) History() []HistoryEntry { return v.history }

func (v *memoryView) AppendHistory(entry HistoryEntry) {
	v.history = append(v.history, entry)
}

func (v *memoryView) ContainsHistory(dir string) bool {
	for _, e := range v.history {
		if e.Dir == dir {
			return true
		}
	}
	return false
}

func (v *memoryView) SyncHistory() {
	if v.currentDir == "" {
		return
	}
	if n := len(v.history); n > 0 && v.history[n-1].Dir == v.currentDir {
		return
	}
	v.history = append(v.history, HistoryEntry{Dir: v.currentDir})
}

func (v *memoryView) CurrentDir() string       { return v.currentDir }
func (v *memoryView) SetCurrentDir(dir string) { v.currentDir = dir }
func (v *memoryView) Filters() Filters         { return v.filters }
func (v *memoryView) SetFilters(f Filters)     { v.filters = f }
func (v *memoryView) Sort() SortSpec           { return v.sortSpec }
func (v *memoryView) SetSort(s SortSpec)       { v.sortSpec = s }
func (v *memoryView) Options() []OptionValue   { return v.options }

func (v *memoryView) ApplyOption(line string) error {
	v.applied = append(v.applied, line)
	return nil
}

type memoryHistory struct {
	items []string
}

func (h *memoryHistory) Items() []string    { return h.items }
func (h *memoryHistory) Append(item string) { h.items = append(h.items, item) }

type memoryOptions struct {
	values  []OptionValue
	applied []string
}

func (o *memoryOptions) List() []OptionValue { return o.values }

func (o *memoryOptions) Apply(line string) error {
	o.applied = append(o.applied, line)
	return nil
}

type memoryAssocs struct {
	lists [3][]Assoc
}

func (a *memoryAssocs) List(kind AssocKind) []Assoc {
	return a.lists[kind]
}

func (a *memoryAssocs) Set(kind AssocKind, matchers, cmd string) error {
	a.lists[kind] = append(a.lists[kind], Assoc{Matchers: matchers, Cmd: cmd})
	return nil
}

func (a *memoryAssocs) Exists(kind AssocKind, matchers, cmd string) bool {
	for _, assoc := range a.lists[kind] {
		if assoc.Matchers == matchers && assoc.Cmd == cmd {
			return true
		}
	}
	return false
}

type memoryCommands struct {
	defs map[string]string
}

func (c *memoryCommands) List() []Command {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)

	cmds := make([]Command, 0, len(names))
	for _, name := range names {
		cmds = append(cmds, Command{Name: name, Body: c.defs[name]})
	}
	return cmds
}

func (c *memoryCommands) Define(name, body string) error {
	c.defs[name] = body
	return nil
}

type memoryMarks struct {
	marks map[byte]Mark
}

func (m *memoryMarks) List() []Mark {
	names := make([]byte, 0, len(m.marks))
	for name := range m.marks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	marks := make([]Mark, 0, len(names))
	for _, name := range names {
		marks = append(marks, m.marks[name])
	}
	return marks
}

func (m *memoryMarks) Set(mark Mark) {
	m.marks[mark.Name] = mark
}

func (m *memoryMarks) IsOlder(name byte, than time.Time) bool {
	mark, ok := m.marks[name]
	if !ok {
		return true
	}
	return mark.Ts.Before(than)
}

type memoryBookmarks struct {
	bmarks map[string]Bookmark
}

func (b *memoryBookmarks) List() []Bookmark {
	paths := make([]string, 0, len(b.bmarks))
	for path := range b.bmarks {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	bmarks := make([]Bookmark, 0, len(paths))
	for _, path := range paths {
		bmarks = append(bmarks, b.bmarks[path])
	}
	return bmarks
}

func (b *memoryBookmarks) Set(bmark Bookmark) error {
	b.bmarks[bmark.Path] = bmark
	return nil
}

func (b *memoryBookmarks) IsOlder(path string, than time.Time) bool {
	bmark, ok := b.bmarks[path]
	if !ok {
		return true
	}
	return bmark.Ts.Before(than)
}

type memoryRegisters struct {
	regs map[byte][]string
}

func (r *memoryRegisters) List() []Register {
	names := make([]byte, 0, len(r.regs))
	for name := range r.regs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	regs := make([]Register, 0, len(names))
	for _, name := range names {
		regs = append(regs, Register{Name: name, Files: r.regs[name]})
	}
	return regs
}

func (r *memoryRegisters) Append(name byte, file string) {
	r.regs[name] = append(r.regs[name], file)
}

type memoryDirStack struct {
	entries []DirStackEntry
	changed bool
}

func (d *memoryDirStack) List() []DirStackEntry { return d.entries }

func (d *memoryDirStack) Push(e DirStackEntry) {
	d.entries = append(d.entries, e)
	d.changed = true
}

func (d *memoryDirStack) Freeze()       { d.changed = false }
func (d *memoryDirStack) Changed() bool { return d.changed }

type memoryTrash struct {
	entries []TrashEntry
}

func (t *memoryTrash) List() []TrashEntry { return t.entries }

func (t *memoryTrash) Add(original, trashed string) error {
	if !t.Has(original, trashed) {
		t.entries = append(t.entries, TrashEntry{Trashed: trashed, Original: original})
	}
	return nil
}

func (t *memoryTrash) Has(original, trashed string) bool {
	for _, e := range t.entries {
		if e.Original == original && e.Trashed == trashed {
			return true
		}
	}
	return false
}
