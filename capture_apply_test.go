package sessync

import (
	"testing"
	"time"

	"github.com/goliatone/go-sessync/pkg/dom"
)

func seededModel() *Model {
	model := NewMemoryModel(10)

	model.Views[0].AppendHistory(HistoryEntry{Dir: "/home", File: "a.txt", RelPos: 2})
	model.Views[0].AppendHistory(HistoryEntry{Dir: "/tmp", File: "b.txt", RelPos: 0})
	model.Views[0].SetCurrentDir("/tmp")
	model.Views[0].SetFilters(Filters{Invert: false, Dot: true, Manual: "{*.o}", Auto: ""})
	model.Views[0].SetSort(SortSpec{2, -3})

	model.Views[1].AppendHistory(HistoryEntry{Dir: "/var", File: "log", RelPos: 1})
	model.Views[1].SetCurrentDir("/var")
	model.Views[1].SetFilters(Filters{Invert: false, Dot: true})
	model.Views[1].SetSort(SortSpec{SortDefault})

	model.TUI = &TUIState{
		ActivePane:    1,
		Preview:       true,
		SplitPos:      25,
		SplitVertical: true,
		SplitExpanded: true,
	}

	model.Assocs.Set(AssocRegular, "{*.txt}", "less %f")
	model.Assocs.Set(AssocExec, "{*.sh}", "bash %f")
	model.Assocs.Set(AssocViewer, "{*.jpg}", "view %f")
	model.Commands.Define("foo", "echo foo")
	model.Marks.Set(Mark{Name: 'h', Dir: "/home", File: "a.txt", Ts: time.Unix(100, 0)})
	model.Bookmarks.Set(Bookmark{Path: "/projects", Tags: "work,go", Ts: time.Unix(200, 0)})
	model.Registers.Append('a', "/tmp/one")
	model.Registers.Append('a', "/tmp/two")
	model.DirStack.Push(DirStackEntry{
		LeftDir: "/l", LeftFile: "lf", RightDir: "/r", RightFile: "rf",
	})
	model.Trash.Add("/orig/x", "/trash/000_x")
	model.CmdHistory.Append("ls")
	model.CmdHistory.Append("quit")
	model.SearchHistory.Append("pattern")
	model.PromptHistory.Append("answer")
	model.FilterHistory.Append("{*.bak}")
	model.Multiplexer = true
	model.ColorScheme = "kamui"

	return model
}

func TestCaptureApplyRoundTrip(t *testing.T) {
	// Global options are excluded: applying option lines feeds the host's
	// :set handler rather than reconstructing typed values.
	flags := FlagAll &^ FlagOptions

	source := New(seededModel(), WithFlags(flags))
	captured := source.Capture()

	fresh := NewMemoryModel(10)
	target := New(fresh, WithFlags(flags))
	target.Apply(captured, false)

	recaptured := target.Capture()

	want, err := captured.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := recaptured.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("round trip drifted:\nfirst:  %s\nsecond: %s", want, got)
	}

	if dir := fresh.Views[0].CurrentDir(); dir != "/tmp" {
		t.Fatalf("restored location = %q", dir)
	}
	if fresh.TUI.ActivePane != 1 {
		t.Fatalf("active pane = %d", fresh.TUI.ActivePane)
	}
}

func TestApplyRereadSkipsOneTimeState(t *testing.T) {
	source := New(seededModel(), WithFlags(FlagAll&^FlagOptions))
	captured := source.Capture()

	fresh := NewMemoryModel(10)
	target := New(fresh, WithFlags(FlagAll&^FlagOptions))
	target.Apply(captured, true)

	if fresh.TUI.ActivePane != 0 {
		t.Fatal("reread must not switch the active pane")
	}
	if fresh.TUI.SplitExpanded {
		t.Fatal("reread must not re-expand the splitter")
	}
	if fresh.TUI.SplitPos != 25 {
		t.Fatalf("splitter position must still apply, got %d", fresh.TUI.SplitPos)
	}
	if dir := fresh.Views[0].CurrentDir(); dir != "" {
		t.Fatalf("reread must not restore locations, got %q", dir)
	}
	if len(fresh.Views[0].History()) != 2 {
		t.Fatal("history must still apply on reread")
	}
}

func TestApplyHistoryOrder(t *testing.T) {
	root := dom.NewObject()
	hist := root.AddArray("cmd-hist")
	hist.AppendString("newest")
	hist.AppendString("older")
	hist.AppendString("oldest")

	model := NewMemoryModel(10)
	New(model).Apply(root, false)

	items := model.CmdHistory.Items()
	if len(items) != 3 {
		t.Fatalf("items = %v", items)
	}
	if items[0] != "oldest" || items[2] != "newest" {
		t.Fatalf("stored order must be oldest first, got %v", items)
	}
}

func TestCaptureHistoryOrderAndOmission(t *testing.T) {
	model := NewMemoryModel(10)
	model.CmdHistory.Append("oldest")
	model.CmdHistory.Append("newest")

	root := New(model, WithFlags(FlagCHistory|FlagSHistory)).Capture()

	hist := root.Get("cmd-hist")
	if hist == nil || hist.Len() != 2 {
		t.Fatalf("cmd-hist = %v", hist)
	}
	if s := hist.At(0).AsString(); s != "newest" {
		t.Fatalf("on-disk order must be newest first, got %q", s)
	}

	if root.Has("search-hist") {
		t.Fatal("empty history must contribute no node")
	}
}

func TestCaptureFlagGating(t *testing.T) {
	model := seededModel()
	root := New(model, WithFlags(FlagMarks)).Capture()

	if !root.Has("marks") {
		t.Fatal("marks section missing")
	}
	for _, key := range []string{
		"options", "assocs", "cmds", "bmarks", "cmd-hist", "regs",
		"dir-stack", "use-term-multiplexer", "color-scheme",
	} {
		if root.Has(key) {
			t.Errorf("section %q must be omitted when its flag is unset", key)
		}
	}
	if !root.Has("gtabs") {
		t.Fatal("pane skeleton must always be present")
	}
	if !root.Has("trash") {
		t.Fatal("trash is written regardless of flags")
	}
}

func TestApplyFilters(t *testing.T) {
	t.Run("dot mirrors inversion", func(t *testing.T) {
		root := dom.NewObject()
		filters := leftPTabSkeleton(root).AddObject("filters")
		filters.SetBool("invert", true)
		filters.SetBool("dot", true)
		filters.SetString("manual", "{*.o}")
		filters.SetString("auto", "{*.c}")

		model := NewMemoryModel(10)
		New(model).Apply(root, false)

		f := model.Views[0].Filters()
		if !f.Invert {
			t.Fatal("invert must be set")
		}
		if f.Dot {
			t.Fatal("dot must mirror the negated inversion value")
		}
		if f.Manual != "{*.o}" || f.Auto != "{*.c}" {
			t.Fatalf("filters = %+v", f)
		}
	})

	t.Run("bad manual falls back to empty", func(t *testing.T) {
		root := dom.NewObject()
		filters := leftPTabSkeleton(root).AddObject("filters")
		filters.SetString("manual", "{unclosed")

		var logged []LogEvent
		model := NewMemoryModel(10)
		session := New(model, WithLogger(LoggerFunc(func(e LogEvent) {
			logged = append(logged, e)
		})))
		session.Apply(root, false)

		if f := model.Views[0].Filters(); f.Manual != "" {
			t.Fatalf("manual = %q, want empty fallback", f.Manual)
		}
		if len(logged) == 0 {
			t.Fatal("fallback must be logged")
		}
	})

	t.Run("bad auto keeps previous value", func(t *testing.T) {
		root := dom.NewObject()
		filters := leftPTabSkeleton(root).AddObject("filters")
		filters.SetString("auto", "{unclosed")

		model := NewMemoryModel(10)
		model.Views[0].SetFilters(Filters{Auto: "{*.c}"})
		New(model).Apply(root, false)

		if f := model.Views[0].Filters(); f.Auto != "{*.c}" {
			t.Fatalf("auto = %q, want previous value kept", f.Auto)
		}
	})
}

func leftPTabSkeleton(root *dom.Node) *dom.Node {
	gtab := root.AddArray("gtabs").AppendObject()
	panes := gtab.AddArray("panes")
	left := panes.AppendObject().AddArray("ptabs").AppendObject()
	panes.AppendObject().AddArray("ptabs").AppendObject()
	return left
}

func TestApplyBadAssocMatchersSkipped(t *testing.T) {
	root := dom.NewObject()
	assocs := root.AddArray("assocs")
	bad := assocs.AppendObject()
	bad.SetString("matchers", "{unclosed")
	bad.SetString("cmd", "never")
	good := assocs.AppendObject()
	good.SetString("matchers", "{*.txt}")
	good.SetString("cmd", "less %f")

	model := NewMemoryModel(10)
	New(model).Apply(root, false)

	list := model.Assocs.List(AssocRegular)
	if len(list) != 1 {
		t.Fatalf("assocs = %+v", list)
	}
	if list[0].Cmd != "less %f" {
		t.Fatalf("kept assoc = %+v", list[0])
	}
}

func TestParseSort(t *testing.T) {
	cases := []struct {
		name string
		line string
		want SortSpec
	}{
		{"plain", "2,-3", SortSpec{2, -3}},
		{"clamped high", "100", SortSpec{MaxSortKey}},
		{"clamped low", "-100", SortSpec{-MaxSortKey}},
		{"stops at bad token", "1,bogus,3", SortSpec{1}},
		{"all bad", "bogus", SortSpec{SortDefault}},
		{"empty", "", SortSpec{SortDefault}},
		{"overlong", "1,2,3,4,5,6,7,8,9", SortSpec{1, 2, 3, 4, 5, 6, 7, 8}},
		{"whitespace", " 2 , -3 ", SortSpec{2, -3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseSort(tc.line); got != tc.want {
				t.Fatalf("parseSort(%q) = %v, want %v", tc.line, got, tc.want)
			}
		})
	}
}

func TestRenderSort(t *testing.T) {
	if got := renderSort(SortSpec{2, -3}); got != "2,-3" {
		t.Fatalf("renderSort = %q", got)
	}
	if got := renderSort(SortSpec{2, SortNone, 5}); got != "2" {
		t.Fatalf("renderSort must stop at the first unused slot, got %q", got)
	}
}

func TestRenderOption(t *testing.T) {
	cases := []struct {
		name  string
		value OptionValue
		want  string
	}{
		{"bool on", OptionValue{Name: "fastrun", Kind: OptionBool, Bool: true}, "fastrun"},
		{"bool off", OptionValue{Name: "fastrun", Kind: OptionBool}, "nofastrun"},
		{"int", OptionValue{Name: "scrolloff", Kind: OptionInt, Int: 5}, "scrolloff=5"},
		{"string", OptionValue{Name: "shell", Kind: OptionString, Str: "/bin/sh"}, "shell=/bin/sh"},
		{"escaped", OptionValue{Name: "shell", Kind: OptionString, Str: `/my sh\x`}, `shell=/my\ sh\\x`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := renderOption(tc.value); got != tc.want {
				t.Fatalf("renderOption = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCaptureAssocs(t *testing.T) {
	model := NewMemoryModel(10)
	model.Assocs = &memoryAssocs{lists: [3][]Assoc{{
		{Matchers: "{*.zip}", Cmd: "mount %f, unmount %f", Description: "FUSE"},
		{Matchers: "{*.x}", Cmd: "", Description: "empty"},
		{Matchers: "{*.y}", Cmd: "builtin", Builtin: true},
	}}}

	root := New(model, WithFlags(FlagFiletypes)).Capture()

	assocs := root.Get("assocs")
	if assocs.Len() != 1 {
		t.Fatalf("assocs len = %d, builtin and empty entries must be dropped", assocs.Len())
	}
	var cmd string
	assocs.At(0).GetString("cmd", &cmd)
	if cmd != "{FUSE}mount %f,, unmount %f" {
		t.Fatalf("cmd = %q, commas must be doubled and description wrapped", cmd)
	}
}

func TestCaptureRegistersAlphabet(t *testing.T) {
	model := NewMemoryModel(10)
	model.Registers.Append('a', "/tmp/kept")
	model.Registers.Append('"', "/tmp/unnamed")
	model.Registers.Append('A', "/tmp/dropped")
	model.Registers.Append('%', "/tmp/also-dropped")

	regs := New(model, WithFlags(FlagRegisters)).Capture().Get("regs")
	if regs.Len() != 2 {
		t.Fatalf("regs len = %d, names outside the register alphabet must be dropped", regs.Len())
	}
	for _, name := range []string{`"`, "a"} {
		if !regs.Has(name) {
			t.Errorf("register %q missing", name)
		}
	}
	for _, name := range []string{"A", "%"} {
		if regs.Has(name) {
			t.Errorf("register %q must not be persisted", name)
		}
	}
}

func TestApplyToleratesMalformedFields(t *testing.T) {
	data := []byte(`{
		"gtabs": [{"panes": [
			{"ptabs": [{"history": [
				{"dir": "/ok", "file": "f", "relpos": -5},
				{"dir": "/no-file"},
				"not-an-object"
			]}]},
			{"ptabs": [{}]}
		]}],
		"marks": {"h": {"dir": "/d", "file": "f"}, "j": {"dir": "/d", "file": "f", "ts": 9}},
		"regs": {"a": ["/f", 17], "": ["/x"]},
		"use-term-multiplexer": "yes"
	}`)
	root, err := dom.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	model := NewMemoryModel(10)
	New(model).Apply(root, false)

	history := model.Views[0].History()
	if len(history) != 1 {
		t.Fatalf("history = %+v", history)
	}
	if history[0].RelPos != 0 {
		t.Fatalf("negative relpos must clamp to 0, got %d", history[0].RelPos)
	}

	marks := model.Marks.List()
	if len(marks) != 1 || marks[0].Name != 'j' {
		t.Fatalf("marks = %+v, entry without ts must be skipped", marks)
	}

	regs := model.Registers.List()
	if len(regs) != 1 || len(regs[0].Files) != 1 {
		t.Fatalf("regs = %+v, non-string file and empty name must be skipped", regs)
	}

	if model.Multiplexer {
		t.Fatal("mistyped boolean must be ignored")
	}
}
