package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/buildenv/internal/builder"
	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/logging"
	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/registry"
)

// mockCommander implements Commander interface for testing
type mockCommander struct {
	runFunc func() error
}

func (m *mockCommander) Run() error {
	return m.runFunc()
}

type recorder struct {
	calls [][]string
	fail  map[string]error
}

func (r *recorder) exec(_ context.Context, name string, args ...string) Commander {
	argv := append([]string{name}, args...)
	r.calls = append(r.calls, argv)

	return &mockCommander{runFunc: func() error {
		if r.fail != nil {
			return r.fail[name]
		}
		return nil
	}}
}

func testProfile(t *testing.T, succinct bool) *profile.Profile {
	t.Helper()

	opts := profile.DefaultOptions()
	opts.Succinct = succinct
	opts.Interactive = func() bool { return false }
	opts.Which = func(name string) (string, bool) { return name, true }

	p, err := profile.New("debug", "", opts)
	require.NoError(t, err)
	return p
}

func testContext() context.Context {
	logger := logging.New(&bytes.Buffer{}, true)
	return logging.WithLogger(context.Background(), &logger)
}

func testPlan(dir string) *builder.Plan {
	return &builder.Plan{Actions: []builder.Action{
		{Kind: profile.ActionCompileCXX, Target: filepath.Join(dir, "obj", "Main.o"), Argv: []string{"clang++", "-c", "Main.cc"}},
		{Kind: profile.ActionLink, Target: filepath.Join(dir, "kernel"), Argv: []string{"clang++", "-o", "kernel", "Main.o"}},
	}}
}

func TestRunner_Execute(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	rec := &recorder{}

	r := NewRunner(&out)
	r.execCommand = rec.exec

	p := testProfile(t, true)
	err := r.Execute(testContext(), p, testPlan(dir))
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"clang++", "-c", "Main.cc"},
		{"clang++", "-o", "kernel", "Main.o"},
	}, rec.calls)

	want := fmt.Sprintf("%25s: %s\n%25s: %s\n", "Building (C++)", filepath.Join(dir, "obj", "Main.o"), "Linking", filepath.Join(dir, "kernel"))
	assert.Equal(t, want, out.String())
	assert.DirExists(t, filepath.Join(dir, "obj"))

	assert.True(t, p.Frozen(), "profile is immutable once building starts")
}

func TestRunner_Execute_VerboseTemplates(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(&out)
	r.DryRun = true

	err := r.Execute(testContext(), testProfile(t, false), testPlan("out"))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "  [Building (C++)] "+filepath.Join("out", "obj", "Main.o"))
	assert.Contains(t, out.String(), "  [Linking] "+filepath.Join("out", "kernel"))
}

func TestRunner_Execute_DryRun(t *testing.T) {
	var out bytes.Buffer
	rec := &recorder{}

	r := NewRunner(&out)
	r.execCommand = rec.exec
	r.DryRun = true

	err := r.Execute(testContext(), testProfile(t, true), testPlan(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, rec.calls)
	assert.Contains(t, out.String(), "Linking")
}

func TestRunner_Execute_StopsAtFailure(t *testing.T) {
	var out bytes.Buffer
	rec := &recorder{fail: map[string]error{"clang++": fmt.Errorf("command not found")}}

	r := NewRunner(&out)
	r.execCommand = rec.exec

	err := r.Execute(testContext(), testProfile(t, true), testPlan(t.TempDir()))
	require.Error(t, err)
	assert.True(t, eris.Is(err, codes.ErrActionFailed))
	assert.Contains(t, err.Error(), "command not found")
	assert.Len(t, rec.calls, 1)
}

func TestRunner_ExecuteCommand_ExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r := NewRunner(&bytes.Buffer{})

	err := r.ExecuteCommand(context.Background(), []string{"sh", "-c", "exit 3"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, codes.ErrActionFailed))
	assert.Contains(t, err.Error(), "exited with code 3")

	err = r.ExecuteCommand(context.Background(), []string{"sh", "-c", "exit 0"})
	assert.NoError(t, err)
}

func TestRunner_ExecuteCommand_Empty(t *testing.T) {
	r := NewRunner(&bytes.Buffer{})
	err := r.ExecuteCommand(context.Background(), nil)
	assert.True(t, eris.Is(err, codes.ErrActionFailed))
}

func TestRunner_RunTests(t *testing.T) {
	var out bytes.Buffer
	rec := &recorder{fail: map[string]error{"build/test/broken": fmt.Errorf("exit status 1")}}

	r := NewRunner(&out)
	r.execCommand = rec.exec

	cmds := []registry.RunCommand{
		{Suite: "kstd", Program: "build/test/kstd", Args: []string{registry.ColorFlag}},
		{Suite: "broken", Program: "build/test/broken", Args: []string{registry.ColorFlag}},
	}

	err := r.RunTests(testContext(), testProfile(t, true), cmds)
	require.Error(t, err)
	assert.True(t, eris.Is(err, codes.ErrActionFailed))
	assert.Contains(t, err.Error(), "broken")
	assert.NotContains(t, err.Error(), "kstd")

	assert.Equal(t, [][]string{
		{"build/test/kstd", registry.ColorFlag},
		{"build/test/broken", registry.ColorFlag},
	}, rec.calls, "every suite runs even after a failure")
	assert.Contains(t, out.String(), "Testing: build/test/kstd")
}

func TestNewRunner(t *testing.T) {
	r := NewRunner(nil)
	assert.NotNil(t, r)
	assert.NotNil(t, r.execCommand)
	assert.NotNil(t, r.Out)
}
