package sessync

import "github.com/goliatone/go-sessync/pkg/dom"

// Merge folds sections written by another instance (admixture, the
// document read back from disk) into the freshly captured current
// document, in place. Only sections selected by the flags participate;
// options are deliberately never merged since the live instance's
// configuration wins.
func (s *Session) Merge(current, admixture *dom.Node) {
	if current == nil || admixture == nil {
		return
	}

	s.mergeTabs(current, admixture)

	flags := s.cfg.flags
	if flags.Has(FlagFiletypes) {
		s.mergeAssocs(current, admixture, AssocRegular)
		s.mergeAssocs(current, admixture, AssocExec)
		s.mergeAssocs(current, admixture, AssocViewer)
	}
	if flags.Has(FlagCommands) {
		s.mergeCommands(current, admixture)
	}
	if flags.Has(FlagMarks) {
		s.mergeMarks(current, admixture)
	}
	if flags.Has(FlagBookmarks) {
		s.mergeBookmarks(current, admixture)
	}
	for _, kind := range historyKinds {
		if flags.Has(kind.flag()) {
			mergeHistory(current, admixture, kind.node())
		}
	}
	if flags.Has(FlagRegisters) {
		mergeRegisters(current, admixture)
	}
	if flags.Has(FlagDirStack) {
		s.mergeDirStack(current, admixture)
	}
	s.mergeTrash(current, admixture)
}

// mergeTabs merges directory histories, which is only well defined when
// both sides have exactly one global tab and one pane tab per pane.
func (s *Session) mergeTabs(current, admixture *dom.Node) {
	if !s.cfg.flags.Has(FlagDHistory) {
		return
	}

	currentGTabs := current.Get("gtabs")
	updatedGTabs := admixture.Get("gtabs")
	if currentGTabs.Len() != 1 || updatedGTabs.Len() != 1 {
		return
	}

	currentPanes := currentGTabs.At(0).Get("panes")
	updatedPanes := updatedGTabs.At(0).Get("panes")
	if currentPanes == nil || updatedPanes == nil {
		return
	}

	for i := 0; i < 2; i++ {
		currentPane := currentPanes.At(i)
		updatedPane := updatedPanes.At(i)
		if currentPane == nil || updatedPane == nil {
			continue
		}

		currentPTabs := currentPane.Get("ptabs")
		updatedPTabs := updatedPane.Get("ptabs")
		if currentPTabs.Len() == 1 && updatedPTabs.Len() == 1 {
			s.mergeDHistory(currentPTabs.At(0), updatedPTabs.At(0), s.model.Views[i])
		}
	}
}

// mergeDHistory prepends admixture history entries whose directory is new
// to this session and still exists on disk, bounded by the history
// capacity left in the view.
func (s *Session) mergeDHistory(current, admixture *dom.Node, view View) {
	if view == nil {
		return
	}

	extra := s.model.HistoryCap - len(view.History())
	updated := admixture.Get("history")
	if extra <= 0 || updated.Len() == 0 {
		return
	}

	merged := dom.NewArray()
	added := 0

	for i := 0; i < updated.Len(); i++ {
		entry := updated.At(i)
		if entry == nil {
			continue
		}

		var dir string
		if entry.GetString("dir", &dir) {
			if added < extra && !view.ContainsHistory(dir) && s.cfg.dirExists(dir) {
				merged.Append(entry.Clone())
				added++
			}
		}
	}

	history := current.Get("history")
	for i := 0; i < history.Len(); i++ {
		merged.Append(history.At(i).Clone())
	}

	current.Set("history", merged)
}

func (s *Session) mergeAssocs(current, admixture *dom.Node, kind AssocKind) {
	updated := admixture.Get(kind.node())
	if updated == nil {
		return
	}
	entries := getOrAddArray(current, kind.node())

	for i := 0; i < updated.Len(); i++ {
		entry := updated.At(i)
		if entry == nil {
			continue
		}

		var matchers, cmd string
		if entry.GetString("matchers", &matchers) && entry.GetString("cmd", &cmd) {
			if s.model.Assocs == nil || !s.model.Assocs.Exists(kind, matchers, cmd) {
				entries.Append(entry.Clone())
			}
		}
	}
}

func (s *Session) mergeCommands(current, admixture *dom.Node) {
	updated := admixture.Get("cmds")
	if updated == nil {
		return
	}
	cmds := getOrAddObject(current, "cmds")

	for _, name := range updated.Keys() {
		if cmds.Has(name) {
			continue
		}
		body := updated.Get(name)
		if body != nil && body.Kind() == dom.String {
			cmds.SetString(name, body.AsString())
		}
	}
}

func (s *Session) mergeMarks(current, admixture *dom.Node) {
	updated := admixture.Get("marks")
	if updated == nil {
		return
	}
	marks := getOrAddObject(current, "marks")

	for _, name := range updated.Keys() {
		if name == "" {
			continue
		}
		mark := updated.Get(name)
		if mark == nil {
			continue
		}

		var ts float64
		if mark.GetFloat("ts", &ts) && s.markIsOlder(name[0], ts) {
			marks.Set(name, mark.Clone())
		}
	}
}

func (s *Session) markIsOlder(name byte, ts float64) bool {
	if s.model.Marks == nil {
		return false
	}
	return s.model.Marks.IsOlder(name, unixTime(ts))
}

func (s *Session) mergeBookmarks(current, admixture *dom.Node) {
	updated := admixture.Get("bmarks")
	if updated == nil {
		return
	}
	bmarks := getOrAddObject(current, "bmarks")

	for _, path := range updated.Keys() {
		bmark := updated.Get(path)
		if bmark == nil {
			continue
		}

		var ts float64
		if bmark.GetFloat("ts", &ts) && s.bookmarkIsOlder(path, ts) {
			bmarks.Set(path, bmark.Clone())
		}
	}
}

func (s *Session) bookmarkIsOlder(path string, ts float64) bool {
	if s.model.Bookmarks == nil {
		return false
	}
	return s.model.Bookmarks.IsOlder(path, unixTime(ts))
}

// mergeHistory deduplicates a flat history, keeping the admixture's
// unique items as the most-recent block ahead of all current entries.
func mergeHistory(current, admixture *dom.Node, node string) {
	updated := admixture.Get(node)
	if updated.Len() == 0 {
		return
	}

	entries := current.Get(node)
	seen := make(map[string]struct{}, entries.Len())
	for i := 0; i < entries.Len(); i++ {
		entry := entries.At(i)
		if entry != nil && entry.Kind() == dom.String {
			seen[entry.AsString()] = struct{}{}
		}
	}

	merged := dom.NewArray()
	for i := 0; i < updated.Len(); i++ {
		entry := updated.At(i)
		if entry == nil || entry.Kind() != dom.String {
			continue
		}
		if _, ok := seen[entry.AsString()]; !ok {
			merged.AppendString(entry.AsString())
		}
	}
	for i := 0; i < entries.Len(); i++ {
		entry := entries.At(i)
		if entry != nil && entry.Kind() == dom.String {
			merged.AppendString(entry.AsString())
		}
	}

	current.Set(node, merged)
}

func mergeRegisters(current, admixture *dom.Node) {
	updated := admixture.Get("regs")
	if updated == nil {
		return
	}
	regs := getOrAddObject(current, "regs")

	for _, name := range updated.Keys() {
		if !regs.Has(name) {
			regs.Set(name, updated.Get(name).Clone())
		}
	}
}

// mergeDirStack replaces the captured stack wholesale, but only if this
// instance never touched its own stack.
func (s *Session) mergeDirStack(current, admixture *dom.Node) {
	if s.model.DirStack != nil && s.model.DirStack.Changed() {
		return
	}
	updated := admixture.Get("dir-stack")
	if updated != nil {
		current.Set("dir-stack", updated.Clone())
	}
}

func (s *Session) mergeTrash(current, admixture *dom.Node) {
	updated := admixture.Get("trash")
	if updated == nil {
		return
	}
	trash := getOrAddArray(current, "trash")

	for i := 0; i < updated.Len(); i++ {
		entry := updated.At(i)
		if entry == nil {
			continue
		}

		var trashed, original string
		if entry.GetString("trashed", &trashed) && entry.GetString("original", &original) {
			if s.model.Trash == nil || !s.model.Trash.Has(original, trashed) {
				trash.Append(entry.Clone())
			}
		}
	}
}

func getOrAddArray(parent *dom.Node, key string) *dom.Node {
	if existing := parent.Get(key); existing != nil {
		return existing
	}
	return parent.AddArray(key)
}

func getOrAddObject(parent *dom.Node, key string) *dom.Node {
	if existing := parent.Get(key); existing != nil {
		return existing
	}
	return parent.AddObject(key)
}
