package registry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/buildenv/internal/codes"
)

func recordingLinker(calls *[][]*Artifact) LinkFunc {
	return func(suite string, objects []*Artifact) (*Artifact, error) {
		*calls = append(*calls, objects)
		return &Artifact{Name: suite, Kind: KindTestProgram, Path: "build/debug/test/" + suite}, nil
	}
}

func TestTestRegistry_LinkUsesObjectsInOrder(t *testing.T) {
	ctx := testContext(&bytes.Buffer{})
	tr := NewTestRegistry()

	o1 := &Artifact{Name: "o1", Path: "o1.o"}
	o2 := &Artifact{Name: "o2", Path: "o2.o"}
	require.NoError(t, tr.AddObject("suite", o1))
	require.NoError(t, tr.AddObject("suite", o2))

	var calls [][]*Artifact
	prog, err := tr.LinkProgram(ctx, "suite", recordingLinker(&calls))
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, []*Artifact{o1, o2}, calls[0])
	assert.Equal(t, "build/debug/test/suite", prog.Path)

	s, ok := tr.Suite("suite")
	require.True(t, ok)
	assert.True(t, s.Linked())
}

func TestTestRegistry_DefaultSuite(t *testing.T) {
	ctx := testContext(&bytes.Buffer{})
	tr := NewTestRegistry()

	require.NoError(t, tr.AddObject("", &Artifact{Name: "a"}))

	var calls [][]*Artifact
	_, err := tr.LinkProgram(ctx, "", recordingLinker(&calls))
	require.NoError(t, err)

	_, ok := tr.Suite(DefaultSuite)
	assert.True(t, ok)
}

func TestTestRegistry_LinkedSuiteIsImmutable(t *testing.T) {
	ctx := testContext(&bytes.Buffer{})
	tr := NewTestRegistry()
	require.NoError(t, tr.AddObject("suite", &Artifact{Name: "o1"}))

	var calls [][]*Artifact
	first, err := tr.LinkProgram(ctx, "suite", recordingLinker(&calls))
	require.NoError(t, err)

	second, err := tr.LinkProgram(ctx, "suite", recordingLinker(&calls))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, calls, 1, "second link is a no-op")

	err = tr.AddObject("suite", &Artifact{Name: "late", Path: "late.o"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, codes.ErrSuiteLinked))

	s, _ := tr.Suite("suite")
	assert.Len(t, s.Objects, 1)
}

func TestTestRegistry_LinkErrors(t *testing.T) {
	ctx := testContext(&bytes.Buffer{})
	tr := NewTestRegistry()

	_, err := tr.LinkProgram(ctx, "missing", func(string, []*Artifact) (*Artifact, error) {
		t.Fatal("linker must not run for an empty suite")
		return nil, nil
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, codes.ErrUnknownArtifact))

	require.NoError(t, tr.AddObject("broken", &Artifact{Name: "o"}))
	_, err = tr.LinkProgram(ctx, "broken", func(string, []*Artifact) (*Artifact, error) {
		return nil, errors.New("no linker")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no linker")

	s, _ := tr.Suite("broken")
	assert.False(t, s.Linked())
}

func TestTestRegistry_RunAll(t *testing.T) {
	ctx := testContext(&bytes.Buffer{})
	tr := NewTestRegistry()

	require.NoError(t, tr.AddObject("A", &Artifact{Name: "a"}))
	require.NoError(t, tr.AddObject("B", &Artifact{Name: "b"}))

	var calls [][]*Artifact
	_, err := tr.LinkProgram(ctx, "A", recordingLinker(&calls))
	require.NoError(t, err)

	cmds := tr.RunAll()
	require.Len(t, cmds, 1)
	assert.Equal(t, "A", cmds[0].Suite)
	assert.Equal(t, []string{"build/debug/test/A", ColorFlag}, cmds[0].Argv())
	assert.Equal(t, []string{"A", "B"}, tr.Names())
}

func TestRunCommand_String(t *testing.T) {
	cmd := RunCommand{Suite: "unit", Program: "build/debug/test/unit tests", Args: []string{ColorFlag}}
	s := cmd.String()

	assert.Contains(t, s, "'build/debug/test/unit tests'")
	assert.Contains(t, s, "gtest_color")

	plain := RunCommand{Program: "build/debug/test/unit"}
	assert.Equal(t, "build/debug/test/unit", plain.String())
}
