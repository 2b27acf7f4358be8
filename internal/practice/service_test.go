package practice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/starford/katac/internal/apperr"
	"github.com/starford/katac/internal/days"
	"github.com/starford/katac/internal/history"
	"github.com/starford/katac/internal/katas"
	"github.com/starford/katac/internal/runner"
	"github.com/starford/katac/internal/state"
	"github.com/starford/katac/internal/testutil"
)

type fakePicker struct {
	options []string
	chosen  []string
	err     error
}

func (p *fakePicker) Select(_ context.Context, _ string, options []string) ([]string, error) {
	p.options = options
	return p.chosen, p.err
}

type fakeGit struct {
	clones []string
	pulls  []string
	err    error
}

func (g *fakeGit) Clone(_ context.Context, remote, path string) error {
	g.clones = append(g.clones, remote+" "+path)
	if g.err != nil {
		return g.err
	}
	return os.MkdirAll(filepath.Join(path, DefaultKatasDir, "remote-kata"), 0o755)
}

func (g *fakeGit) Pull(_ context.Context, path string) error {
	g.pulls = append(g.pulls, path)
	return g.err
}

type fixture struct {
	root     string
	katasDir string
	daysDir  string
	out      *bytes.Buffer
	state    *state.Store
	db       *history.DB
	picker   *fakePicker
	git      *fakeGit
	svc      *Service
}

func newFixture(t *testing.T, withState bool, mods ...func(*Deps)) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:     root,
		katasDir: testutil.Katas(t, root),
		daysDir:  filepath.Join(root, "days"),
		out:      &bytes.Buffer{},
		picker:   &fakePicker{},
		git:      &fakeGit{},
	}
	d := Deps{
		WorkDir:  root,
		KatasDir: f.katasDir,
		DaysDir:  f.daysDir,
		Author:   "tester",
		Env:      runner.Env{GOOS: "linux"},
		Rand:     rand.New(rand.NewPCG(1, 2)),
		Git:      f.git,
		Picker:   f.picker,
		Stdout:   f.out,
		Stderr:   f.out,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if withState {
		f.state = testutil.TestState(t)
		f.db = testutil.TestDB(t)
		d.State = f.state
		d.Log = f.db
	}
	for _, m := range mods {
		m(&d)
	}
	f.svc = New(d)
	return f
}

func (f *fixture) day(n int, kata string) string {
	return filepath.Join(f.daysDir, days.Name(n), kata)
}

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestCopy_IntoEmptyDaysDir(t *testing.T) {
	f := newFixture(t, false)
	if err := f.svc.Copy(context.Background(), []string{"foo"}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if got := f.out.String(); got != "Copying foo to day1...\n" {
		t.Errorf("output = %q", got)
	}
	if _, err := os.Stat(filepath.Join(f.day(1, "foo"), "Makefile")); err != nil {
		t.Errorf("foo not copied: %v", err)
	}
}

func TestCopy_AllIntoSameDay(t *testing.T) {
	f := newFixture(t, false)
	if err := f.svc.Copy(context.Background(), []string{"foo", "bar", "baz"}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	want := "Copying foo to day1...\nCopying bar to day1...\nCopying baz to day1...\n"
	if got := f.out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	for _, k := range []string{"foo", "bar", "baz"} {
		if !isDir(f.day(1, k)) {
			t.Errorf("%s missing from day1", k)
		}
	}
}

func TestCopy_UsesNextDay(t *testing.T) {
	f := newFixture(t, false)
	for _, d := range []string{"day1", "day3", "dayX"} {
		if err := os.MkdirAll(filepath.Join(f.daysDir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.svc.Copy(context.Background(), []string{"foo"}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if !isDir(f.day(4, "foo")) {
		t.Error("foo should land in day4")
	}
	if f.out.String() != "Copying foo to day4...\n" {
		t.Errorf("output = %q", f.out.String())
	}
}

func TestCopy_MissingKataCreatesNothing(t *testing.T) {
	f := newFixture(t, false)
	err := f.svc.Copy(context.Background(), []string{"nope"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if f.out.String() != "Kata nope does not exist\n" {
		t.Errorf("output = %q", f.out.String())
	}
	if _, err := os.Stat(f.daysDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("days dir should not exist, stat err = %v", err)
	}
}

func TestCopy_ContinuesAfterFailure(t *testing.T) {
	f := newFixture(t, false)
	err := f.svc.Copy(context.Background(), []string{"nope", "foo"})
	if err == nil || !strings.Contains(err.Error(), "1 of 2 katas failed") {
		t.Fatalf("err = %v", err)
	}
	if !isDir(f.day(1, "foo")) {
		t.Error("foo should still be copied")
	}
}

func TestCopy_LiteralPath(t *testing.T) {
	f := newFixture(t, false)
	if err := f.svc.Copy(context.Background(), []string{"katas/bar"}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if !isDir(f.day(1, "bar")) {
		t.Error("bar should be copied from its literal path")
	}
}

func TestCopy_RejectsDotNames(t *testing.T) {
	f := newFixture(t, false)
	err := f.svc.Copy(context.Background(), []string{".", ".."})
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if got := f.out.String(); got != "Kata . does not exist\nKata .. does not exist\n" {
		t.Errorf("output = %q", got)
	}
	if _, err := os.Stat(f.daysDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("days dir should not exist, stat err = %v", err)
	}
}

func TestCopy_FromGlobalRegistry(t *testing.T) {
	f := newFixture(t, true)
	ext := filepath.Join(t.TempDir(), "ext")
	testutil.WriteTree(t, ext, map[string]string{"Makefile": testutil.Makefile("ext")})
	f.state.AddKata(katas.Kata{Name: "ext", Path: ext})

	if err := f.svc.Copy(context.Background(), []string{"ext"}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if !isDir(f.day(1, "ext")) {
		t.Error("ext should be copied from the global registry")
	}
}

func TestCopy_SeedsMissingRunner(t *testing.T) {
	f := newFixture(t, false)
	if err := os.MkdirAll(filepath.Join(f.katasDir, "plain"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Copy(context.Background(), []string{"plain"}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.day(1, "plain"), runner.ShScript)); err != nil {
		t.Errorf("run.sh should be seeded: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.katasDir, "plain", runner.ShScript)); err == nil {
		t.Error("source kata must not be modified")
	}
}

func TestCopy_RecordsHistory(t *testing.T) {
	f := newFixture(t, true)
	if err := f.svc.Copy(context.Background(), []string{"foo"}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	entries, err := f.db.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	e := entries[0]
	if e.Kata != "foo" || e.Day != 1 || e.Action != history.ActionCopy || e.Status != history.StatusOK || e.Checksum == "" {
		t.Errorf("entry = %+v", e)
	}
	if e.Workspace != filepath.Base(f.root) {
		t.Errorf("workspace = %q", e.Workspace)
	}
	if e.Session != f.svc.session {
		t.Errorf("session = %q, want %q", e.Session, f.svc.session)
	}
}

func TestRandomNames_FromConfig(t *testing.T) {
	f := newFixture(t, false, func(d *Deps) { d.Random = []string{"foo", "bar", "baz", "bar"} })
	got, err := f.svc.RandomNames(2)
	if err != nil {
		t.Fatalf("RandomNames: %v", err)
	}
	if len(got) != 2 || got[0] == got[1] {
		t.Fatalf("got %v, want 2 distinct names", got)
	}
	for _, n := range got {
		if !slices.Contains([]string{"foo", "bar", "baz"}, n) {
			t.Errorf("unexpected kata %q", n)
		}
	}
}

func TestRandomNames_TooMany(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.RandomNames(4)
	if !errors.Is(err, apperr.ErrTooMany) {
		t.Errorf("err = %v, want ErrTooMany", err)
	}
}

func TestRandom_CopiesPicks(t *testing.T) {
	f := newFixture(t, false)
	if err := f.svc.Random(context.Background(), 3); err != nil {
		t.Fatalf("Random: %v", err)
	}
	for _, k := range []string{"foo", "bar", "baz"} {
		if !isDir(f.day(1, k)) {
			t.Errorf("%s missing", k)
		}
	}
}

func TestRun_NoRunner(t *testing.T) {
	f := newFixture(t, false)
	if err := os.MkdirAll(f.day(1, "foo"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Run(context.Background(), nil, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "\n> Running foo [1/1]\n--------------------\nNo Makefile/run file found in " +
		filepath.Join("days", "day1", "foo") + "\n"
	if got := f.out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRun_NoDay(t *testing.T) {
	f := newFixture(t, false)
	err := f.svc.Run(context.Background(), nil, "")
	if !errors.Is(err, apperr.ErrNoDay) {
		t.Errorf("err = %v, want ErrNoDay", err)
	}
}

func TestRun_Makefile(t *testing.T) {
	requireTool(t, "make")
	f := newFixture(t, true, func(d *Deps) { d.Env.MakeAvailable = true })
	ctx := context.Background()
	if err := f.svc.Copy(ctx, []string{"foo"}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	f.out.Reset()
	if err := f.svc.Run(ctx, []string{"foo"}, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(f.out.String(), "> Running foo [1/1]") || !strings.Contains(f.out.String(), "foo\n") {
		t.Errorf("output = %q", f.out.String())
	}
	stats, _ := f.db.Stats(ctx)
	if len(stats) != 1 || stats[0].Runs != 1 || stats[0].Copies != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRun_CustomCommand(t *testing.T) {
	requireTool(t, "echo")
	f := newFixture(t, false)
	if err := os.MkdirAll(f.day(1, "foo"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Run(context.Background(), nil, "echo custom"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(f.out.String(), "custom\n") {
		t.Errorf("output = %q", f.out.String())
	}
}

func TestRun_CollectsFailures(t *testing.T) {
	requireTool(t, "false")
	f := newFixture(t, false)
	for _, k := range []string{"foo", "bar"} {
		if err := os.MkdirAll(f.day(1, k), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	err := f.svc.Run(context.Background(), nil, "false")
	if err == nil || !strings.Contains(err.Error(), "2 of 2 runs failed") {
		t.Fatalf("err = %v", err)
	}
	if strings.Count(f.out.String(), "> Running") != 2 {
		t.Errorf("both katas should run, output = %q", f.out.String())
	}
}

func TestNew_CreatesKata(t *testing.T) {
	f := newFixture(t, true)
	if err := f.svc.New(context.Background(), "qux"); err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := f.out.String(); got != "qux created in katas.\n" {
		t.Errorf("output = %q", got)
	}
	if _, err := os.Stat(filepath.Join(f.katasDir, "qux", runner.ShScript)); err != nil {
		t.Errorf("run.sh not seeded: %v", err)
	}
	if _, ok := katas.Find(f.state.Katas(), "qux"); !ok {
		t.Error("qux should be in the global registry")
	}
}

func TestNew_LiteralPathIsRegisteredAbsolute(t *testing.T) {
	f := newFixture(t, true)
	if err := f.svc.New(context.Background(), "sub/qux"); err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := f.out.String(); got != "sub/qux created in sub.\n" {
		t.Errorf("output = %q", got)
	}
	want := filepath.Join(f.root, "sub", "qux")
	if !isDir(want) {
		t.Errorf("%s not created", want)
	}
	k, ok := katas.Find(f.state.Katas(), "qux")
	if !ok {
		t.Fatal("qux should be in the global registry")
	}
	if k.Path != want {
		t.Errorf("registry path = %q, want %q", k.Path, want)
	}
}

func TestNew_ExistingKataUntouched(t *testing.T) {
	f := newFixture(t, false)
	before, _ := os.ReadFile(filepath.Join(f.katasDir, "foo", "Makefile"))
	err := f.svc.New(context.Background(), "foo")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if f.out.String() != "Kata foo already exists\n" {
		t.Errorf("output = %q", f.out.String())
	}
	after, _ := os.ReadFile(filepath.Join(f.katasDir, "foo", "Makefile"))
	if !bytes.Equal(before, after) {
		t.Error("existing kata was modified")
	}
	if _, err := os.Stat(filepath.Join(f.katasDir, "foo", runner.ShScript)); err == nil {
		t.Error("no runner should be seeded into an existing kata")
	}
}

func TestStart_CopiesSelection(t *testing.T) {
	f := newFixture(t, false)
	f.picker.chosen = []string{"baz"}
	if err := f.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if strings.Join(f.picker.options, ",") != "bar,baz,foo" {
		t.Errorf("options = %v", f.picker.options)
	}
	if !isDir(f.day(1, "baz")) {
		t.Error("baz should be copied")
	}
}

func TestStart_EmptySelection(t *testing.T) {
	f := newFixture(t, false)
	err := f.svc.Start(context.Background())
	if !errors.Is(err, apperr.ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
	if f.out.String() != "No katas selected, use the SPACE key to select katas\n" {
		t.Errorf("output = %q", f.out.String())
	}
}

func TestStart_PickerError(t *testing.T) {
	f := newFixture(t, false)
	f.picker.err = errors.New("Not a TTY")
	if err := f.svc.Start(context.Background()); err == nil || err.Error() != "Not a TTY" {
		t.Errorf("err = %v", err)
	}
}

func TestEnsureWorkspace_RegistersAndRefreshes(t *testing.T) {
	f := newFixture(t, true)
	if err := f.svc.EnsureWorkspace(); err != nil {
		t.Fatalf("EnsureWorkspace: %v", err)
	}
	ws, ok := f.state.Find(filepath.Base(f.root))
	if !ok {
		t.Fatal("workspace not registered")
	}
	if ws.Path != f.root || ws.Author != "tester" || len(ws.Katas) != 3 {
		t.Errorf("workspace = %+v", ws)
	}

	if err := os.MkdirAll(filepath.Join(f.katasDir, "qux"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.EnsureWorkspace(); err != nil {
		t.Fatalf("EnsureWorkspace: %v", err)
	}
	ws, _ = f.state.Find(filepath.Base(f.root))
	if len(ws.Katas) != 4 {
		t.Errorf("katas not refreshed: %+v", ws.Katas)
	}

	reopened, err := state.Open(f.state.Dir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !reopened.Contains(filepath.Base(f.root)) {
		t.Error("workspace not saved")
	}
}

func TestEnsureWorkspace_SameNameOtherPath(t *testing.T) {
	f := newFixture(t, true)
	name := filepath.Base(f.root)
	other := filepath.Join(t.TempDir(), name)
	kept := []katas.Kata{{Name: "remote-kata", Path: filepath.Join(other, DefaultKatasDir, "remote-kata")}}
	if err := f.state.Add(state.Workspace{Name: name, Path: other, Katas: kept}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := f.svc.EnsureWorkspace(); err != nil {
		t.Fatalf("EnsureWorkspace: %v", err)
	}
	if err := f.svc.New(context.Background(), "qux"); err != nil {
		t.Fatalf("New: %v", err)
	}

	ws, _ := f.state.Find(name)
	if ws.Path != other || len(ws.Katas) != 1 || ws.Katas[0].Name != "remote-kata" {
		t.Errorf("other workspace was modified: %+v", ws)
	}

	list, err := f.svc.WorkspaceKatas("")
	if err != nil {
		t.Fatalf("WorkspaceKatas: %v", err)
	}
	if got := strings.Join(katas.Names(list), ","); got != "bar,baz,foo,qux" {
		t.Errorf("current katas = %s, want the local ones", got)
	}
}

func TestAddWorkspace_Remote(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	if err := f.svc.AddWorkspace(ctx, "", "clone", "https://example.com/katas.git"); err != nil {
		t.Fatalf("AddWorkspace: %v", err)
	}
	if len(f.git.clones) != 1 {
		t.Fatalf("clones = %v", f.git.clones)
	}
	ws, ok := f.state.Find("clone")
	if !ok {
		t.Fatal("workspace clone not registered")
	}
	if ws.Remote == "" || len(ws.Katas) != 1 || ws.Katas[0].Name != "remote-kata" {
		t.Errorf("workspace = %+v", ws)
	}

	err := f.svc.AddWorkspace(ctx, "clone", "elsewhere", "https://example.com/other.git")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
	if len(f.git.clones) != 1 {
		t.Error("duplicate name must not clone")
	}
}

func TestRemoveWorkspace(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	if err := f.svc.RemoveWorkspace(ctx, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := f.svc.AddWorkspace(ctx, "mine", "", ""); err != nil {
		t.Fatalf("AddWorkspace: %v", err)
	}
	if err := f.svc.RemoveWorkspace(ctx, "mine"); err != nil {
		t.Fatalf("RemoveWorkspace: %v", err)
	}
	if f.state.Contains("mine") {
		t.Error("workspace still registered")
	}
}

func TestUpgrade_PullsRemotesAndRescans(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	if err := f.svc.AddWorkspace(ctx, "remote", "remote", "https://example.com/katas.git"); err != nil {
		t.Fatalf("AddWorkspace: %v", err)
	}
	if err := f.svc.AddWorkspace(ctx, "local", "", ""); err != nil {
		t.Fatalf("AddWorkspace: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(f.root, "remote", DefaultKatasDir, "pulled"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Upgrade(ctx); err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if len(f.git.pulls) != 1 || f.git.pulls[0] != filepath.Join(f.root, "remote") {
		t.Errorf("pulls = %v", f.git.pulls)
	}
	ws, _ := f.state.Find("remote")
	if _, ok := katas.Find(ws.Katas, "pulled"); !ok {
		t.Errorf("katas not rescanned: %+v", ws.Katas)
	}
	local, _ := f.state.Find("local")
	if len(local.Katas) != 3 {
		t.Errorf("local katas = %+v", local.Katas)
	}
}

func TestInit_WritesConfigOnce(t *testing.T) {
	calls := 0
	f := newFixture(t, true)
	f.svc.saveConfig = func() (string, error) {
		calls++
		p := filepath.Join(f.root, "katac.toml")
		return p, os.WriteFile(p, []byte("log_level = \"WARN\"\n"), 0o644)
	}
	if err := f.svc.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !isDir(f.daysDir) {
		t.Error("days dir not created")
	}
	if !strings.Contains(f.out.String(), "Created katac.toml") {
		t.Errorf("output = %q", f.out.String())
	}
	if err := f.svc.Init(context.Background()); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if calls != 1 {
		t.Errorf("config written %d times", calls)
	}
	if !f.state.Contains(filepath.Base(f.root)) {
		t.Error("workspace not registered")
	}
}

func TestStateDisabled(t *testing.T) {
	f := newFixture(t, false)
	if err := f.svc.AddWorkspace(context.Background(), "x", "", ""); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
	if err := f.svc.EnsureWorkspace(); err != nil {
		t.Errorf("EnsureWorkspace without state: %v", err)
	}
}

func TestListAllKatas_Long(t *testing.T) {
	f := newFixture(t, false)
	if err := f.svc.ListAllKatas(context.Background(), false); err != nil {
		t.Fatalf("ListAllKatas: %v", err)
	}
	if f.out.String() != "bar\nbaz\nfoo\n" {
		t.Errorf("short output = %q", f.out.String())
	}
	f.out.Reset()
	if err := f.svc.ListAllKatas(context.Background(), true); err != nil {
		t.Fatalf("ListAllKatas: %v", err)
	}
	if !strings.Contains(f.out.String(), "Bar kata") || !strings.Contains(f.out.String(), "strings, easy") {
		t.Errorf("long output = %q", f.out.String())
	}
}

func TestHistoryAndStats(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	if err := f.svc.History(ctx, 10); err != nil {
		t.Fatalf("History: %v", err)
	}
	if f.out.String() != "No history yet\n" {
		t.Errorf("empty history = %q", f.out.String())
	}
	if err := f.svc.Copy(ctx, []string{"foo", "bar"}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	f.out.Reset()
	if err := f.svc.History(ctx, 10); err != nil {
		t.Fatalf("History: %v", err)
	}
	if !strings.Contains(f.out.String(), "foo") || !strings.Contains(f.out.String(), "copy") {
		t.Errorf("history = %q", f.out.String())
	}
	f.out.Reset()
	if err := f.svc.Stats(ctx); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if !strings.Contains(f.out.String(), "bar") || !strings.Contains(f.out.String(), "COPIES") {
		t.Errorf("stats = %q", f.out.String())
	}
}
