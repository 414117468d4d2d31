package sessync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-sessync/pkg/dom"
)

// Capture serializes the live model into a fresh document. Sections whose
// flag is not set are omitted entirely rather than written empty, so the
// merge engine can tell "not requested" from "requested but empty".
func (s *Session) Capture() *dom.Node {
	root := dom.NewObject()

	gtabs := root.AddArray("gtabs")
	s.captureGTab(gtabs.AppendObject())

	s.captureTrash(root)

	flags := s.cfg.flags
	if flags.Has(FlagOptions) {
		s.captureGlobalOptions(root)
	}
	if flags.Has(FlagFiletypes) {
		s.captureAssocs(root, AssocRegular)
		s.captureAssocs(root, AssocExec)
		s.captureAssocs(root, AssocViewer)
	}
	if flags.Has(FlagCommands) {
		s.captureCommands(root)
	}
	if flags.Has(FlagMarks) {
		s.captureMarks(root)
	}
	if flags.Has(FlagBookmarks) {
		s.captureBookmarks(root)
	}
	for _, kind := range historyKinds {
		if flags.Has(kind.flag()) {
			s.captureHistory(root, kind)
		}
	}
	if flags.Has(FlagRegisters) {
		s.captureRegisters(root)
	}
	if flags.Has(FlagDirStack) {
		s.captureDirStack(root)
	}
	if flags.Has(FlagState) {
		root.SetBool("use-term-multiplexer", s.model.Multiplexer)
	}
	if flags.Has(FlagColorScheme) {
		root.SetString("color-scheme", s.model.ColorScheme)
	}

	return root
}

func (s *Session) captureGTab(gtab *dom.Node) {
	panes := gtab.AddArray("panes")
	s.captureView(panes.AppendObject(), s.model.Views[0])
	s.captureView(panes.AppendObject(), s.model.Views[1])

	if s.cfg.flags.Has(FlagTUI) && s.model.TUI != nil {
		tui := s.model.TUI
		gtab.SetInt("active-pane", tui.ActivePane)
		gtab.SetBool("preview", tui.Preview)

		splitter := gtab.AddObject("splitter")
		splitter.SetInt("pos", tui.SplitPos)
		orientation := "h"
		if tui.SplitVertical {
			orientation = "v"
		}
		splitter.SetString("orientation", orientation)
		splitter.SetBool("expanded", tui.SplitExpanded)
	}
}

func (s *Session) captureView(viewData *dom.Node, view View) {
	ptab := viewData.AddArray("ptabs").AppendObject()
	if view == nil {
		return
	}

	flags := s.cfg.flags
	if flags.Has(FlagDHistory) && s.model.HistoryCap > 0 {
		s.captureDHistory(ptab, view)
	}
	if flags.Has(FlagState) {
		captureFilters(ptab, view)
	}
	if flags.Has(FlagOptions) {
		captureOptions(ptab, view.Options())
	}
	if flags.Has(FlagTUI) {
		ptab.SetString("sorting", renderSort(view.Sort()))
	}
}

func (s *Session) captureDHistory(ptab *dom.Node, view View) {
	view.SyncHistory()

	history := ptab.AddArray("history")
	for _, e := range view.History() {
		entry := history.AppendObject()
		entry.SetString("dir", e.Dir)
		entry.SetString("file", e.File)
		entry.SetInt("relpos", e.RelPos)
	}

	ptab.SetBool("restore-last-location", s.cfg.flags.Has(FlagSaveDirs))
}

func captureFilters(ptab *dom.Node, view View) {
	f := view.Filters()
	filters := ptab.AddObject("filters")
	filters.SetBool("invert", f.Invert)
	filters.SetBool("dot", f.Dot)
	filters.SetString("manual", f.Manual)
	filters.SetString("auto", f.Auto)
}

func (s *Session) captureGlobalOptions(root *dom.Node) {
	if s.model.Options == nil {
		root.AddArray("options")
		return
	}
	captureOptions(root, s.model.Options.List())
}

func captureOptions(parent *dom.Node, values []OptionValue) {
	options := parent.AddArray("options")
	for _, value := range values {
		options.AppendString(renderOption(value))
	}
}

// renderOption formats an option the way the host's :set command accepts
// it back: booleans as the bare or "no"-prefixed name, strings with spaces
// and backslashes escaped.
func renderOption(o OptionValue) string {
	switch o.Kind {
	case OptionBool:
		if o.Bool {
			return o.Name
		}
		return "no" + o.Name
	case OptionInt:
		return fmt.Sprintf("%s=%d", o.Name, o.Int)
	default:
		return o.Name + "=" + escapeSpaces(o.Str)
	}
}

func escapeSpaces(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == ' ' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (s *Session) captureAssocs(root *dom.Node, kind AssocKind) {
	entries := root.AddArray(kind.node())
	if s.model.Assocs == nil {
		return
	}
	for _, assoc := range s.model.Assocs.List(kind) {
		// Builtin placeholder associations exist only in memory.
		if assoc.Cmd == "" || assoc.Builtin {
			continue
		}

		cmd := doubleChar(assoc.Cmd, ',')
		if assoc.Description != "" {
			cmd = "{" + assoc.Description + "}" + cmd
		}

		entry := entries.AppendObject()
		entry.SetString("matchers", assoc.Matchers)
		entry.SetString("cmd", cmd)
	}
}

func doubleChar(s string, c byte) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		if s[i] == c {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (s *Session) captureCommands(root *dom.Node) {
	cmds := root.AddObject("cmds")
	if s.model.Commands == nil {
		return
	}
	for _, cmd := range s.model.Commands.List() {
		cmds.SetString(cmd.Name, cmd.Body)
	}
}

func (s *Session) captureMarks(root *dom.Node) {
	marks := root.AddObject("marks")
	if s.model.Marks == nil {
		return
	}
	for _, m := range s.model.Marks.List() {
		entry := marks.AddObject(string(m.Name))
		entry.SetString("dir", m.Dir)
		entry.SetString("file", m.File)
		entry.SetInt("ts", int(m.Ts.Unix()))
	}
}

func (s *Session) captureBookmarks(root *dom.Node) {
	bmarks := root.AddObject("bmarks")
	if s.model.Bookmarks == nil {
		return
	}
	for _, b := range s.model.Bookmarks.List() {
		entry := bmarks.AddObject(b.Path)
		entry.SetString("tags", b.Tags)
		entry.SetInt("ts", int(b.Ts.Unix()))
	}
}

// captureHistory writes a flat history most-recent-first, matching the
// on-disk order. An empty history contributes no node at all.
func (s *Session) captureHistory(root *dom.Node, kind HistoryKind) {
	hist := s.model.history(kind)
	if hist == nil {
		return
	}
	items := hist.Items()
	if len(items) == 0 {
		return
	}
	entries := root.AddArray(kind.node())
	for i := len(items) - 1; i >= 0; i-- {
		entries.AppendString(items[i])
	}
}

func (s *Session) captureRegisters(root *dom.Node) {
	regs := root.AddObject("regs")
	if s.model.Registers == nil {
		return
	}
	for _, reg := range s.model.Registers.List() {
		if len(reg.Files) == 0 || strings.IndexByte(ValidRegisters, reg.Name) < 0 {
			continue
		}
		files := regs.AddArray(string(reg.Name))
		for _, file := range reg.Files {
			files.AppendString(file)
		}
	}
}

func (s *Session) captureDirStack(root *dom.Node) {
	entries := root.AddArray("dir-stack")
	if s.model.DirStack == nil {
		return
	}
	for _, e := range s.model.DirStack.List() {
		entry := entries.AppendObject()
		entry.SetString("left-dir", e.LeftDir)
		entry.SetString("left-file", e.LeftFile)
		entry.SetString("right-dir", e.RightDir)
		entry.SetString("right-file", e.RightFile)
	}
}

func (s *Session) captureTrash(root *dom.Node) {
	if s.model.Trash == nil {
		return
	}
	list := s.model.Trash.List()
	if len(list) == 0 {
		return
	}
	trash := root.AddArray("trash")
	for _, e := range list {
		entry := trash.AppendObject()
		entry.SetString("trashed", e.Trashed)
		entry.SetString("original", e.Original)
	}
}

// renderSort formats a sort spec as comma-separated signed integers,
// stopping at the first unused slot.
func renderSort(spec SortSpec) string {
	var parts []string
	for _, key := range spec {
		if key == SortNone || key < -MaxSortKey || key > MaxSortKey {
			break
		}
		parts = append(parts, strconv.Itoa(key))
	}
	return strings.Join(parts, ",")
}
