package sessync

import (
	"bufio"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-sessync/pkg/dom"
)

// Tag characters of the legacy line-oriented state format. Each record
// starts with one of these followed by the rest of the line as a value.
// The format is read for migration only, never written.
const (
	legacyComment          = '#'
	legacyOption           = '='
	legacyAssoc            = '.'
	legacyXAssoc           = 'x'
	legacyViewer           = ','
	legacyCommand          = '!'
	legacyMark             = '\''
	legacyBookmark         = '%'
	legacyActivePane       = 'a'
	legacyQuickView        = 'q'
	legacyWinCount         = 'v'
	legacySplitOrientation = 'o'
	legacySplitPosition    = 'm'
	legacyLeftSort         = 'l'
	legacyRightSort        = 'r'
	legacyLeftHist         = 'd'
	legacyRightHist        = 'D'
	legacyCmdHist          = ':'
	legacySearchHist       = '/'
	legacyPromptHist       = 'p'
	legacyFilterHist       = 'f'
	legacyDirStack         = 'S'
	legacyTrash            = 't'
	legacyRegister         = '"'
	legacyLeftFilter       = 'F'
	legacyRightFilter      = 'R'
	legacyLeftFilterInv    = 'i'
	legacyRightFilterInv   = 'I'
	legacyMultiplexer      = 's'
	legacyColorScheme      = 'c'
	legacyLeftProp         = '['
	legacyRightProp        = ']'
)

// Per-pane property sub-tags carried in the value of '['/']' records.
const (
	legacyPropDotFiles   = '.'
	legacyPropAutoFilter = 'a'
)

// pseudoCmd is the builtin placeholder command name whose associations
// old versions persisted and which must not be loaded back.
const pseudoCmd = "vifm"

// legacyHandler describes one record kind: how many follow-up lines the
// record requires and how to apply it to the document being built.
type legacyHandler struct {
	extra int
	apply func(p *legacyParser, val string, extra []string)
}

var legacyHandlers = map[byte]legacyHandler{
	legacyOption: {apply: func(p *legacyParser, val string, _ []string) {
		switch {
		case strings.HasPrefix(val, "["):
			p.leftOptions.AppendString(val[1:])
		case strings.HasPrefix(val, "]"):
			p.rightOptions.AppendString(val[1:])
		default:
			p.options.AppendString(val)
		}
	}},
	legacyAssoc: {extra: 1, apply: func(p *legacyParser, val string, extra []string) {
		p.appendAssoc(p.assocs, val, extra[0], true)
	}},
	legacyXAssoc: {extra: 1, apply: func(p *legacyParser, val string, extra []string) {
		p.appendAssoc(p.xassocs, val, extra[0], true)
	}},
	legacyViewer: {extra: 1, apply: func(p *legacyParser, val string, extra []string) {
		p.appendAssoc(p.viewers, val, extra[0], false)
	}},
	legacyCommand: {extra: 1, apply: func(p *legacyParser, val string, extra []string) {
		p.cmds.SetString(val, extra[0])
	}},
	legacyMark: {extra: 2, apply: func(p *legacyParser, val string, extra []string) {
		if val == "" {
			return
		}
		ts, ok := p.reader.optionalNumber()
		if !ok {
			ts = int(p.now().Unix())
		}
		mark := p.marks.AddObject(string(val[0]))
		mark.SetString("dir", extra[0])
		mark.SetString("file", extra[1])
		mark.SetInt("ts", ts)
	}},
	legacyBookmark: {extra: 2, apply: func(p *legacyParser, val string, extra []string) {
		ts, err := strconv.ParseInt(extra[1], 10, 64)
		if err != nil {
			return
		}
		bmark := p.bmarks.AddObject(val)
		bmark.SetString("tags", extra[0])
		bmark.SetInt("ts", int(ts))
	}},
	legacyActivePane: {apply: func(p *legacyParser, val string, _ []string) {
		pane := 1
		if strings.HasPrefix(val, "l") {
			pane = 0
		}
		p.gtab.SetInt("active-pane", pane)
	}},
	legacyQuickView: {apply: func(p *legacyParser, val string, _ []string) {
		p.gtab.SetBool("preview", atoi(val) != 0)
	}},
	legacyWinCount: {apply: func(p *legacyParser, val string, _ []string) {
		p.splitter.SetBool("expanded", atoi(val) == 1)
	}},
	legacySplitOrientation: {apply: func(p *legacyParser, val string, _ []string) {
		orientation := "h"
		if strings.HasPrefix(val, "v") {
			orientation = "v"
		}
		p.splitter.SetString("orientation", orientation)
	}},
	legacySplitPosition: {apply: func(p *legacyParser, val string, _ []string) {
		p.splitter.SetInt("pos", atoi(val))
	}},
	legacyLeftSort: {apply: func(p *legacyParser, val string, _ []string) {
		p.leftTab.SetString("sorting", val)
	}},
	legacyRightSort: {apply: func(p *legacyParser, val string, _ []string) {
		p.rightTab.SetString("sorting", val)
	}},
	legacyLeftHist:  {apply: historyRecord(0)},
	legacyRightHist: {apply: historyRecord(1)},
	legacyCmdHist: {apply: func(p *legacyParser, val string, _ []string) {
		p.cmdHist.AppendString(val)
	}},
	legacySearchHist: {apply: func(p *legacyParser, val string, _ []string) {
		p.searchHist.AppendString(val)
	}},
	legacyPromptHist: {apply: func(p *legacyParser, val string, _ []string) {
		p.promptHist.AppendString(val)
	}},
	legacyFilterHist: {apply: func(p *legacyParser, val string, _ []string) {
		p.filterHist.AppendString(val)
	}},
	legacyDirStack: {extra: 3, apply: func(p *legacyParser, val string, extra []string) {
		entry := p.dirStack.AppendObject()
		entry.SetString("left-dir", val)
		entry.SetString("left-file", extra[0])
		rightDir := extra[1]
		if rightDir != "" {
			rightDir = rightDir[1:]
		}
		entry.SetString("right-dir", rightDir)
		entry.SetString("right-file", extra[2])
	}},
	legacyTrash: {extra: 1, apply: func(p *legacyParser, val string, extra []string) {
		entry := p.trash.AppendObject()
		entry.SetString("trashed", p.resolveTrashPath(val))
		entry.SetString("original", extra[0])
	}},
	legacyRegister: {apply: func(p *legacyParser, val string, _ []string) {
		if val == "" || strings.IndexByte(ValidRegisters, val[0]) < 0 {
			return
		}
		name := string(val[0])
		files := p.regs.Get(name)
		if files == nil {
			files = p.regs.AddArray(name)
		}
		files.AppendString(val[1:])
	}},
	legacyLeftFilter: {apply: func(p *legacyParser, val string, _ []string) {
		p.leftFilters.SetString("manual", val)
	}},
	legacyRightFilter: {apply: func(p *legacyParser, val string, _ []string) {
		p.rightFilters.SetString("manual", val)
	}},
	legacyLeftFilterInv: {apply: func(p *legacyParser, val string, _ []string) {
		p.leftFilters.SetBool("invert", atoi(val) != 0)
	}},
	legacyRightFilterInv: {apply: func(p *legacyParser, val string, _ []string) {
		p.rightFilters.SetBool("invert", atoi(val) != 0)
	}},
	legacyMultiplexer: {apply: func(p *legacyParser, val string, _ []string) {
		p.root.SetBool("use-term-multiplexer", atoi(val) != 0)
	}},
	legacyColorScheme: {apply: func(p *legacyParser, val string, _ []string) {
		p.root.SetString("color-scheme", val)
	}},
	legacyLeftProp:  {apply: paneProp(0)},
	legacyRightProp: {apply: paneProp(1)},
}

func historyRecord(pane int) func(p *legacyParser, val string, extra []string) {
	return func(p *legacyParser, val string, _ []string) {
		tab := p.leftTab
		hist := p.leftHistory
		if pane == 1 {
			tab = p.rightTab
			hist = p.rightHistory
		}
		if val == "" {
			tab.SetBool("restore-last-location", true)
			return
		}
		file, ok := p.reader.readLine()
		if !ok {
			return
		}
		relPos, ok := p.reader.optionalNumber()
		if !ok {
			relPos = -1
		}
		entry := hist.AppendObject()
		entry.SetString("dir", val)
		entry.SetString("file", file)
		entry.SetInt("relpos", relPos)
	}
}

func paneProp(pane int) func(p *legacyParser, val string, extra []string) {
	return func(p *legacyParser, val string, _ []string) {
		if val == "" {
			return
		}
		tab := p.leftTab
		if pane == 1 {
			tab = p.rightTab
		}
		switch val[0] {
		case legacyPropDotFiles:
			tab.SetBool("dot", atoi(val[1:]) != 0)
		case legacyPropAutoFilter:
			tab.SetString("auto", val[1:])
		}
	}
}

// legacyParser accumulates a document while consuming legacy records.
type legacyParser struct {
	reader *lineReader
	cfg    *sessionConfig
	now    func() time.Time

	root     *dom.Node
	options  *dom.Node
	assocs   *dom.Node
	xassocs  *dom.Node
	viewers  *dom.Node
	cmds     *dom.Node
	marks    *dom.Node
	bmarks   *dom.Node
	dirStack *dom.Node
	trash    *dom.Node
	regs     *dom.Node

	cmdHist    *dom.Node
	searchHist *dom.Node
	promptHist *dom.Node
	filterHist *dom.Node

	gtab         *dom.Node
	splitter     *dom.Node
	leftTab      *dom.Node
	rightTab     *dom.Node
	leftHistory  *dom.Node
	rightHistory *dom.Node
	leftFilters  *dom.Node
	rightFilters *dom.Node
	leftOptions  *dom.Node
	rightOptions *dom.Node
}

// readLegacyInfo parses the legacy line-oriented state format into a
// document with the same schema the primary file uses. Records whose
// follow-up lines are cut off by end of stream are discarded.
func readLegacyInfo(r io.Reader, cfg *sessionConfig) *dom.Node {
	p := newLegacyParser(r, cfg)

	for {
		line, ok := p.reader.readLine()
		if !ok {
			break
		}
		if line == "" {
			continue
		}
		tag := line[0]
		val := line[1:]
		if tag == legacyComment {
			continue
		}
		handler, known := legacyHandlers[tag]
		if !known {
			continue
		}
		extra := make([]string, 0, handler.extra)
		short := false
		for i := 0; i < handler.extra; i++ {
			followup, ok := p.reader.readLine()
			if !ok {
				short = true
				break
			}
			extra = append(extra, followup)
		}
		if short {
			break
		}
		handler.apply(p, val, extra)
	}

	return p.root
}

func newLegacyParser(r io.Reader, cfg *sessionConfig) *legacyParser {
	p := &legacyParser{
		reader: newLineReader(r),
		cfg:    cfg,
		now:    cfg.clock,
	}

	p.root = dom.NewObject()
	p.options = p.root.AddArray("options")
	p.assocs = p.root.AddArray("assocs")
	p.xassocs = p.root.AddArray("xassocs")
	p.viewers = p.root.AddArray("viewers")
	p.cmds = p.root.AddObject("cmds")
	p.marks = p.root.AddObject("marks")
	p.bmarks = p.root.AddObject("bmarks")
	p.cmdHist = p.root.AddArray("cmd-hist")
	p.searchHist = p.root.AddArray("search-hist")
	p.promptHist = p.root.AddArray("prompt-hist")
	p.filterHist = p.root.AddArray("lfilt-hist")
	p.dirStack = p.root.AddArray("dir-stack")
	p.trash = p.root.AddArray("trash")
	p.regs = p.root.AddObject("regs")

	gtabs := p.root.AddArray("gtabs")
	p.gtab = gtabs.AppendObject()
	p.splitter = p.gtab.AddObject("splitter")

	panes := p.gtab.AddArray("panes")
	left := panes.AppendObject()
	right := panes.AppendObject()

	p.leftTab = left.AddArray("ptabs").AppendObject()
	p.rightTab = right.AddArray("ptabs").AppendObject()

	p.leftHistory = p.leftTab.AddArray("history")
	p.rightHistory = p.rightTab.AddArray("history")
	p.leftFilters = p.leftTab.AddObject("filters")
	p.rightFilters = p.rightTab.AddObject("filters")
	p.leftOptions = p.leftTab.AddArray("options")
	p.rightOptions = p.rightTab.AddArray("options")

	return p
}

func (p *legacyParser) appendAssoc(list *dom.Node, matchers, cmd string, skipPseudo bool) {
	if skipPseudo && strings.HasSuffix(cmd, "}"+pseudoCmd) {
		return
	}
	entry := list.AppendObject()
	entry.SetString("matchers", matchers)
	entry.SetString("cmd", cmd)
}

// resolveTrashPath resolves relative trashed paths of old state files
// against the trash root when the referenced file is still there.
func (p *legacyParser) resolveTrashPath(trashed string) string {
	if filepath.IsAbs(trashed) || p.cfg.trashDir == "" {
		return trashed
	}
	if !p.cfg.dirExists(p.cfg.trashDir) {
		return trashed
	}
	full := filepath.Join(p.cfg.trashDir, trashed)
	if p.cfg.pathExists(full) {
		return full
	}
	return trashed
}

// lineReader reads logical lines: trailing newline removed, leading
// whitespace stripped. A one-line pushback supports optional trailing
// numbers that turn out to belong to the next record.
type lineReader struct {
	br      *bufio.Reader
	pushed  string
	hasPush bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReader(r)}
}

func (r *lineReader) readLine() (string, bool) {
	if r.hasPush {
		r.hasPush = false
		return r.pushed, true
	}
	raw, err := r.br.ReadString('\n')
	if raw == "" && err != nil {
		return "", false
	}
	raw = strings.TrimRight(raw, "\r\n")
	return strings.TrimLeft(raw, " \t"), true
}

func (r *lineReader) pushBack(line string) {
	r.pushed = line
	r.hasPush = true
}

// optionalNumber consumes a leading integer from the next line if one is
// present. Text after the digits is left for the next read; a line with no
// leading number is pushed back whole.
func (r *lineReader) optionalNumber() (int, bool) {
	line, ok := r.readLine()
	if !ok {
		return -1, false
	}
	trimmed := strings.TrimLeft(line, " \t")
	i := 0
	if i < len(trimmed) && (trimmed[i] == '-' || trimmed[i] == '+') {
		i++
	}
	j := i
	for j < len(trimmed) && trimmed[j] >= '0' && trimmed[j] <= '9' {
		j++
	}
	if j == i {
		r.pushBack(line)
		return -1, false
	}
	n, err := strconv.Atoi(trimmed[:j])
	if err != nil {
		r.pushBack(line)
		return -1, false
	}
	if rest := trimmed[j:]; rest != "" {
		r.pushBack(rest)
	}
	return n, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
