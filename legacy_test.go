package sessync

import (
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-sessync/pkg/dom"
)

func parseLegacy(t *testing.T, text string, opts ...Option) *dom.Node {
	t.Helper()
	cfg := applyOptions(opts)
	return readLegacyInfo(strings.NewReader(text), &cfg)
}

func nodeString(t *testing.T, n *dom.Node, key string) string {
	t.Helper()
	var s string
	if !n.GetString(key, &s) {
		t.Fatalf("missing string key %q", key)
	}
	return s
}

func nodeFloat(t *testing.T, n *dom.Node, key string) float64 {
	t.Helper()
	var f float64
	if !n.GetFloat(key, &f) {
		t.Fatalf("missing number key %q", key)
	}
	return f
}

func nodeBool(t *testing.T, n *dom.Node, key string) bool {
	t.Helper()
	var b bool
	if !n.GetBool(key, &b) {
		t.Fatalf("missing bool key %q", key)
	}
	return b
}

func leftPTab(root *dom.Node) *dom.Node {
	return root.Get("gtabs").At(0).Get("panes").At(0).Get("ptabs").At(0)
}

func rightPTab(root *dom.Node) *dom.Node {
	return root.Get("gtabs").At(0).Get("panes").At(1).Get("ptabs").At(0)
}

func TestLegacyMarkRecords(t *testing.T) {
	t.Run("explicit timestamp", func(t *testing.T) {
		root := parseLegacy(t, "'h\n/home/user\nfile.txt\n1234\n")

		mark := root.Get("marks").Get("h")
		if mark == nil {
			t.Fatal("mark h missing")
		}
		if dir := nodeString(t, mark, "dir"); dir != "/home/user" {
			t.Fatalf("dir = %q", dir)
		}
		if file := nodeString(t, mark, "file"); file != "file.txt" {
			t.Fatalf("file = %q", file)
		}
		if ts := nodeFloat(t, mark, "ts"); ts != 1234 {
			t.Fatalf("ts = %v", ts)
		}
	})

	t.Run("missing timestamp uses clock", func(t *testing.T) {
		now := time.Unix(777, 0)
		root := parseLegacy(t, "'h\n/home/user\nfile.txt\n:quit\n",
			WithClock(func() time.Time { return now }))

		if ts := nodeFloat(t, root.Get("marks").Get("h"), "ts"); ts != 777 {
			t.Fatalf("ts = %v, want clock value", ts)
		}
		// The unparseable line must still be consumed as the next record.
		hist := root.Get("cmd-hist")
		if hist.Len() != 1 {
			t.Fatalf("cmd-hist len = %d", hist.Len())
		}
		if s := hist.At(0).AsString(); s != "quit" {
			t.Fatalf("cmd-hist[0] = %q", s)
		}
	})

	t.Run("timestamp with trailing text keeps numeric prefix", func(t *testing.T) {
		root := parseLegacy(t, "'h\n/home/user\nfile.txt\n1234:later\n")

		if ts := nodeFloat(t, root.Get("marks").Get("h"), "ts"); ts != 1234 {
			t.Fatalf("ts = %v, want numeric prefix", ts)
		}
		// Whatever follows the digits is read as the next record.
		hist := root.Get("cmd-hist")
		if hist.Len() != 1 || hist.At(0).AsString() != "later" {
			t.Fatalf("cmd-hist = %v entries, trailing text must become the next record", hist.Len())
		}
	})
}

func TestLegacyBookmarkBadTimestampSkipped(t *testing.T) {
	root := parseLegacy(t, "%/path/a\ntag1,tag2\nnot-a-number\n%/path/b\ntag3\n42\n")

	bmarks := root.Get("bmarks")
	if bmarks.Get("/path/a") != nil {
		t.Fatal("bookmark with malformed timestamp must be skipped")
	}
	kept := bmarks.Get("/path/b")
	if kept == nil {
		t.Fatal("bookmark /path/b missing")
	}
	if tags := nodeString(t, kept, "tags"); tags != "tag3" {
		t.Fatalf("tags = %q", tags)
	}
	if ts := nodeFloat(t, kept, "ts"); ts != 42 {
		t.Fatalf("ts = %v", ts)
	}
}

func TestLegacyOptionScoping(t *testing.T) {
	root := parseLegacy(t, "=sort=+name\n=[dotfiles\n=]nodotfiles\n")

	global := root.Get("options")
	if global.Len() != 1 {
		t.Fatalf("global options len = %d", global.Len())
	}
	if s := global.At(0).AsString(); s != "sort=+name" {
		t.Fatalf("global option = %q", s)
	}

	if s := leftPTab(root).Get("options").At(0).AsString(); s != "dotfiles" {
		t.Fatalf("left option = %q", s)
	}
	if s := rightPTab(root).Get("options").At(0).AsString(); s != "nodotfiles" {
		t.Fatalf("right option = %q", s)
	}
}

func TestLegacyRegisterAlphabet(t *testing.T) {
	root := parseLegacy(t, "\"a/tmp/one\n\"a/tmp/two\n\"A/tmp/upper\n\"\n")

	regs := root.Get("regs")
	files := regs.Get("a")
	if files == nil || files.Len() != 2 {
		t.Fatalf("register a = %v", files)
	}
	if s := files.At(1).AsString(); s != "/tmp/two" {
		t.Fatalf("register a[1] = %q", s)
	}
	if regs.Get("A") != nil {
		t.Fatal("uppercase register name must be rejected")
	}
	if len(regs.Keys()) != 1 {
		t.Fatalf("register names = %v", regs.Keys())
	}
}

func TestLegacyHistoryRecords(t *testing.T) {
	text := "d/home\nindex.txt\n3\n" + // entry with relpos
		"d/tmp\nnotes.txt\nD/var\nlog.txt\n7\n" + // relpos missing, next record consumed
		"d\n" // empty dir marks restore-last-location

	root := parseLegacy(t, text)

	leftTab := leftPTab(root)
	rightTab := rightPTab(root)

	left := leftTab.Get("history")
	if left.Len() != 2 {
		t.Fatalf("left history len = %d", left.Len())
	}
	if pos := nodeFloat(t, left.At(0), "relpos"); pos != 3 {
		t.Fatalf("relpos = %v", pos)
	}
	if pos := nodeFloat(t, left.At(1), "relpos"); pos != -1 {
		t.Fatalf("missing relpos = %v, want -1", pos)
	}

	right := rightTab.Get("history")
	if right.Len() != 1 {
		t.Fatalf("right history len = %d", right.Len())
	}
	if dir := nodeString(t, right.At(0), "dir"); dir != "/var" {
		t.Fatalf("right dir = %q", dir)
	}

	if !nodeBool(t, leftTab, "restore-last-location") {
		t.Fatal("restore-last-location must be set by the empty record")
	}
}

func TestLegacyDirStackStripsMarkerByte(t *testing.T) {
	root := parseLegacy(t, "S/left\nlfile\n-/right\nrfile\n")

	entry := root.Get("dir-stack").At(0)
	if dir := nodeString(t, entry, "right-dir"); dir != "/right" {
		t.Fatalf("right-dir = %q", dir)
	}
	if dir := nodeString(t, entry, "left-dir"); dir != "/left" {
		t.Fatalf("left-dir = %q", dir)
	}
}

func TestLegacyTrashPathResolution(t *testing.T) {
	opts := []Option{
		WithTrashDir("/trash"),
		WithDirProbe(func(path string) bool { return path == "/trash" }),
		WithPathProbe(func(path string) bool { return path == "/trash/000_file" }),
	}

	root := parseLegacy(t, "t000_file\n/orig/file\ntmissing\n/orig/missing\nt/abs/path\n/orig/abs\n", opts...)

	trash := root.Get("trash")
	if trash.Len() != 3 {
		t.Fatalf("trash len = %d", trash.Len())
	}
	if p := nodeString(t, trash.At(0), "trashed"); p != "/trash/000_file" {
		t.Fatalf("resolved path = %q", p)
	}
	if p := nodeString(t, trash.At(1), "trashed"); p != "missing" {
		t.Fatalf("unresolvable path = %q", p)
	}
	if p := nodeString(t, trash.At(2), "trashed"); p != "/abs/path" {
		t.Fatalf("absolute path = %q", p)
	}
}

func TestLegacyBuiltinAssocSuppressed(t *testing.T) {
	root := parseLegacy(t, ".{*.zip}\n{Mount in FUSE}vifm\n.{*.txt}\nless %f\n,{*.jpg}\nview %f\n")

	assocs := root.Get("assocs")
	if assocs.Len() != 1 {
		t.Fatalf("assocs len = %d", assocs.Len())
	}
	if cmd := nodeString(t, assocs.At(0), "cmd"); cmd != "less %f" {
		t.Fatalf("cmd = %q", cmd)
	}
	if root.Get("viewers").Len() != 1 {
		t.Fatal("viewer record missing")
	}
}

func TestLegacyTruncatedRecordDiscarded(t *testing.T) {
	root := parseLegacy(t, ":ls\n'h\n/home/user\n")

	if root.Get("marks").Get("h") != nil {
		t.Fatal("record cut off mid-way must be discarded")
	}
	if root.Get("cmd-hist").Len() != 1 {
		t.Fatal("records before the cut must survive")
	}
}

func TestLegacyTUIRecords(t *testing.T) {
	root := parseLegacy(t, "ar\nq1\nv1\nov\nm25\ns1\nckamui\n#comment\n")

	gtab := root.Get("gtabs").At(0)
	if pane := nodeFloat(t, gtab, "active-pane"); pane != 1 {
		t.Fatalf("active-pane = %v", pane)
	}
	if !nodeBool(t, gtab, "preview") {
		t.Fatal("preview must be on")
	}
	splitter := gtab.Get("splitter")
	if !nodeBool(t, splitter, "expanded") {
		t.Fatal("expanded must be on")
	}
	if o := nodeString(t, splitter, "orientation"); o != "v" {
		t.Fatalf("orientation = %q", o)
	}
	if pos := nodeFloat(t, splitter, "pos"); pos != 25 {
		t.Fatalf("pos = %v", pos)
	}
	if !nodeBool(t, root, "use-term-multiplexer") {
		t.Fatal("multiplexer flag must be on")
	}
	if cs := nodeString(t, root, "color-scheme"); cs != "kamui" {
		t.Fatalf("color-scheme = %q", cs)
	}
}

func TestLegacyFilters(t *testing.T) {
	root := parseLegacy(t, "F\\.o$\ni1\nR\\.tmp$\nI0\n[.1\n[afoo\n].0\n")

	leftTab := leftPTab(root)
	rightTab := rightPTab(root)

	left := leftTab.Get("filters")
	if m := nodeString(t, left, "manual"); m != `\.o$` {
		t.Fatalf("left manual = %q", m)
	}
	if !nodeBool(t, left, "invert") {
		t.Fatal("left invert must be on")
	}

	if nodeBool(t, rightPTab(root).Get("filters"), "invert") {
		t.Fatal("right invert must be off")
	}
	if m := nodeString(t, rightTab.Get("filters"), "manual"); m != `\.tmp$` {
		t.Fatalf("right manual = %q", m)
	}

	if !nodeBool(t, leftTab, "dot") {
		t.Fatal("left dot-files property must be on")
	}
	if auto := nodeString(t, leftTab, "auto"); auto != "foo" {
		t.Fatalf("left auto = %q", auto)
	}
	if nodeBool(t, rightTab, "dot") {
		t.Fatal("right dot-files property must be off")
	}
}
