package sessync

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-sessync/pkg/dom"
)

func unixTime(ts float64) time.Time {
	return time.Unix(int64(ts), 0)
}

// Apply pushes the document's values into the live model. Individual
// missing or mistyped fields are skipped and logged; no field failure is
// fatal to the load. On reread, one-time properties of an interactive
// session (active pane, splitter expansion, restored locations) are left
// alone.
func (s *Session) Apply(root *dom.Node, reread bool) {
	if root == nil {
		return
	}

	var multiplexer bool
	if root.GetBool("use-term-multiplexer", &multiplexer) {
		s.model.Multiplexer = multiplexer
	}

	var colorScheme string
	if root.GetString("color-scheme", &colorScheme) {
		s.model.ColorScheme = colorScheme
	}

	if gtabs := root.Get("gtabs"); gtabs != nil {
		for i := 0; i < gtabs.Len(); i++ {
			s.applyGTab(gtabs.At(i), reread)
		}
	}

	s.applyOptionLines(root, "global options", s.model.Options)
	s.applyAssocs(root, AssocRegular)
	s.applyAssocs(root, AssocExec)
	s.applyAssocs(root, AssocViewer)
	s.applyCommands(root)
	s.applyMarks(root)
	s.applyBookmarks(root)
	s.applyRegisters(root)
	s.applyDirStack(root)
	s.applyTrash(root)
	for _, kind := range historyKinds {
		s.applyHistory(root, kind)
	}
}

func (s *Session) applyGTab(gtab *dom.Node, reread bool) {
	if gtab == nil {
		return
	}

	panes := gtab.Get("panes")
	if panes != nil {
		s.applyPane(panes.At(0), s.model.Views[0], reread)
		s.applyPane(panes.At(1), s.model.Views[1], reread)
	}

	tui := s.model.TUI
	if tui == nil {
		return
	}

	var preview bool
	if gtab.GetBool("preview", &preview) {
		tui.Preview = preview
	}

	if splitter := gtab.Get("splitter"); splitter != nil {
		var orientation string
		if splitter.GetString("orientation", &orientation) {
			tui.SplitVertical = strings.HasPrefix(orientation, "v")
		}
		splitter.GetInt("pos", &tui.SplitPos)

		if !reread {
			var expanded bool
			if splitter.GetBool("expanded", &expanded) {
				tui.SplitExpanded = expanded
			}
		}
	}

	if !reread {
		var activePane int
		if gtab.GetInt("active-pane", &activePane) && activePane == 1 {
			tui.ActivePane = 1
		}
	}
}

func (s *Session) applyPane(pane *dom.Node, view View, reread bool) {
	if pane == nil || view == nil {
		return
	}
	ptabs := pane.Get("ptabs")
	if ptabs == nil {
		return
	}
	for i := 0; i < ptabs.Len(); i++ {
		ptab := ptabs.At(i)
		if ptab == nil {
			continue
		}
		s.applyDHistory(ptab, view, reread)
		s.applyFilters(ptab, view)
		s.applyViewOptions(ptab, view)

		var sorting string
		if ptab.GetString("sorting", &sorting) {
			view.SetSort(parseSort(sorting))
		}
	}
}

// applyDHistory replays directory history in stored oldest-to-newest
// order.
func (s *Session) applyDHistory(ptab *dom.Node, view View, reread bool) {
	lastDir := ""
	if history := ptab.Get("history"); history != nil {
		for i := 0; i < history.Len(); i++ {
			entry := history.At(i)
			if entry == nil {
				continue
			}

			var dir, file string
			var relPos int
			if entry.GetString("dir", &dir) && entry.GetString("file", &file) &&
				entry.GetInt("relpos", &relPos) {
				if relPos < 0 {
					relPos = 0
				}
				view.AppendHistory(HistoryEntry{Dir: dir, File: file, RelPos: relPos})
				lastDir = dir
			}
		}
	}

	var restore bool
	if ptab.GetBool("restore-last-location", &restore) {
		if !reread && restore && lastDir != "" {
			view.SetCurrentDir(lastDir)
		}
	}
}

func (s *Session) applyFilters(ptab *dom.Node, view View) {
	filters := ptab.Get("filters")
	if filters == nil {
		return
	}

	f := view.Filters()

	filters.GetBool("invert", &f.Invert)

	// Historically the dot filter was persisted under the same key as
	// inversion; the "dot" key is written but never read back.
	var dot bool
	if filters.GetBool("invert", &dot) {
		f.Dot = !dot
	}

	var manual string
	if filters.GetString("manual", &manual) {
		f.Manual = s.compileFilter("manual filter", manual)
	}

	var auto string
	if filters.GetString("auto", &auto) {
		if _, err := s.cfg.compiler.Compile(auto); err != nil {
			s.cfg.logger.LogEvent(LogEvent{
				Op:      "apply",
				Section: "filters",
				Detail:  "bad auto filter " + strconv.Quote(auto),
				Err:     err,
			})
		} else {
			f.Auto = auto
		}
	}

	view.SetFilters(f)
}

// compileFilter validates expr and falls back to the empty expression,
// which the matcher subsystem must always accept.
func (s *Session) compileFilter(section, expr string) string {
	_, err := s.cfg.compiler.Compile(expr)
	if err == nil {
		return expr
	}
	s.cfg.logger.LogEvent(LogEvent{
		Op:      "apply",
		Section: section,
		Detail:  "falling back to empty filter from " + strconv.Quote(expr),
		Err:     err,
	})
	if _, err := s.cfg.compiler.Compile(""); err != nil {
		s.cfg.logger.LogEvent(LogEvent{
			Op:      "apply",
			Section: section,
			Detail:  "empty filter failed to compile",
			Err:     err,
		})
	}
	return ""
}

func (s *Session) applyViewOptions(ptab *dom.Node, view View) {
	options := ptab.Get("options")
	if options == nil {
		return
	}
	for i := 0; i < options.Len(); i++ {
		entry := options.At(i)
		if entry == nil || entry.Kind() != dom.String {
			continue
		}
		if err := view.ApplyOption(entry.AsString()); err != nil {
			s.cfg.logger.LogEvent(LogEvent{
				Op:      "apply",
				Section: "view options",
				Detail:  entry.AsString(),
				Err:     err,
			})
		}
	}
}

func (s *Session) applyOptionLines(root *dom.Node, section string, store OptionStore) {
	if store == nil {
		return
	}
	options := root.Get("options")
	if options == nil {
		return
	}
	for i := 0; i < options.Len(); i++ {
		entry := options.At(i)
		if entry == nil || entry.Kind() != dom.String {
			continue
		}
		if err := store.Apply(entry.AsString()); err != nil {
			s.cfg.logger.LogEvent(LogEvent{
				Op:      "apply",
				Section: section,
				Detail:  entry.AsString(),
				Err:     err,
			})
		}
	}
}

func (s *Session) applyAssocs(root *dom.Node, kind AssocKind) {
	if s.model.Assocs == nil {
		return
	}
	entries := root.Get(kind.node())
	if entries == nil {
		return
	}
	for i := 0; i < entries.Len(); i++ {
		entry := entries.At(i)
		if entry == nil {
			continue
		}

		var matchers, cmd string
		if !entry.GetString("matchers", &matchers) || !entry.GetString("cmd", &cmd) {
			continue
		}
		if _, err := s.cfg.compiler.Compile(matchers); err != nil {
			s.cfg.logger.LogEvent(LogEvent{
				Op:      "apply",
				Section: kind.node(),
				Detail:  "bad matchers " + strconv.Quote(matchers),
				Err:     err,
			})
			continue
		}
		if err := s.model.Assocs.Set(kind, matchers, cmd); err != nil {
			s.cfg.logger.LogEvent(LogEvent{
				Op:      "apply",
				Section: kind.node(),
				Detail:  matchers,
				Err:     err,
			})
		}
	}
}

func (s *Session) applyCommands(root *dom.Node) {
	if s.model.Commands == nil {
		return
	}
	cmds := root.Get("cmds")
	if cmds == nil {
		return
	}
	for _, name := range cmds.Keys() {
		body := cmds.Get(name)
		if body == nil || body.Kind() != dom.String {
			continue
		}
		if err := s.model.Commands.Define(name, body.AsString()); err != nil {
			s.cfg.logger.LogEvent(LogEvent{
				Op:      "apply",
				Section: "cmds",
				Detail:  name,
				Err:     err,
			})
		}
	}
}

func (s *Session) applyMarks(root *dom.Node) {
	if s.model.Marks == nil {
		return
	}
	marks := root.Get("marks")
	if marks == nil {
		return
	}
	for _, name := range marks.Keys() {
		if name == "" {
			continue
		}
		mark := marks.Get(name)
		if mark == nil {
			continue
		}

		var dir, file string
		var ts float64
		if mark.GetString("dir", &dir) && mark.GetString("file", &file) &&
			mark.GetFloat("ts", &ts) {
			s.model.Marks.Set(Mark{
				Name: name[0],
				Dir:  dir,
				File: file,
				Ts:   unixTime(ts),
			})
		}
	}
}

func (s *Session) applyBookmarks(root *dom.Node) {
	if s.model.Bookmarks == nil {
		return
	}
	bmarks := root.Get("bmarks")
	if bmarks == nil {
		return
	}
	for _, path := range bmarks.Keys() {
		bmark := bmarks.Get(path)
		if bmark == nil {
			continue
		}

		var tags string
		var ts float64
		if bmark.GetString("tags", &tags) && bmark.GetFloat("ts", &ts) {
			err := s.model.Bookmarks.Set(Bookmark{Path: path, Tags: tags, Ts: unixTime(ts)})
			if err != nil {
				s.cfg.logger.LogEvent(LogEvent{
					Op:      "apply",
					Section: "bmarks",
					Detail:  path,
					Err:     err,
				})
			}
		}
	}
}

func (s *Session) applyRegisters(root *dom.Node) {
	if s.model.Registers == nil {
		return
	}
	regs := root.Get("regs")
	if regs == nil {
		return
	}
	for _, name := range regs.Keys() {
		if name == "" {
			continue
		}
		files := regs.Get(name)
		if files == nil {
			continue
		}
		for i := 0; i < files.Len(); i++ {
			file := files.At(i)
			if file != nil && file.Kind() == dom.String {
				s.model.Registers.Append(name[0], file.AsString())
			}
		}
	}
}

func (s *Session) applyDirStack(root *dom.Node) {
	if s.model.DirStack == nil {
		return
	}
	entries := root.Get("dir-stack")
	if entries == nil {
		return
	}
	for i := 0; i < entries.Len(); i++ {
		entry := entries.At(i)
		if entry == nil {
			continue
		}

		var leftDir, leftFile, rightDir, rightFile string
		if entry.GetString("left-dir", &leftDir) &&
			entry.GetString("left-file", &leftFile) &&
			entry.GetString("right-dir", &rightDir) &&
			entry.GetString("right-file", &rightFile) {
			s.model.DirStack.Push(DirStackEntry{
				LeftDir:   leftDir,
				LeftFile:  leftFile,
				RightDir:  rightDir,
				RightFile: rightFile,
			})
		}
	}
}

func (s *Session) applyTrash(root *dom.Node) {
	if s.model.Trash == nil {
		return
	}
	trash := root.Get("trash")
	if trash == nil {
		return
	}
	for i := 0; i < trash.Len(); i++ {
		entry := trash.At(i)
		if entry == nil {
			continue
		}

		var trashed, original string
		if entry.GetString("trashed", &trashed) && entry.GetString("original", &original) {
			if err := s.model.Trash.Add(original, trashed); err != nil {
				s.cfg.logger.LogEvent(LogEvent{
					Op:      "apply",
					Section: "trash",
					Detail:  trashed,
					Err:     err,
				})
			}
		}
	}
}

// applyHistory replays a flat history into its own sink. The on-disk
// order is most-recent-first, so the array is walked backwards to append
// oldest entries first.
func (s *Session) applyHistory(root *dom.Node, kind HistoryKind) {
	hist := s.model.history(kind)
	if hist == nil {
		return
	}
	entries := root.Get(kind.node())
	if entries == nil {
		return
	}
	for i := entries.Len() - 1; i >= 0; i-- {
		entry := entries.At(i)
		if entry != nil && entry.Kind() == dom.String {
			hist.Append(entry.AsString())
		}
	}
}

// parseSort reads a comma-separated list of signed sort keys, clamping
// each to the valid magnitude and stopping at the first bad token or the
// field limit. Unfilled slots stay unset; an entirely unparseable spec
// falls back to the default key.
func parseSort(line string) SortSpec {
	var spec SortSpec

	j := 0
	for _, token := range strings.Split(line, ",") {
		if j >= MaxSortFields {
			break
		}
		key, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil {
			break
		}
		if key > MaxSortKey {
			key = MaxSortKey
		} else if key < -MaxSortKey {
			key = -MaxSortKey
		}
		spec[j] = key
		j++
	}

	for ; j < MaxSortFields; j++ {
		spec[j] = SortNone
	}
	if spec[0] == SortNone {
		spec[0] = SortDefault
	}
	return spec
}
