package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/registry"
)

func testProfile(t *testing.T, kind string) *profile.Profile {
	t.Helper()

	opts := profile.DefaultOptions()
	opts.Interactive = func() bool { return false }
	opts.Which = func(name string) (string, bool) { return "/usr/bin/" + name, true }

	p, err := profile.New(kind, "", opts)
	require.NoError(t, err)

	return p
}

func openManifest(t *testing.T) *Manifest {
	t.Helper()

	m, err := Open(filepath.Join(t.TempDir(), "build"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	return m
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build")

	m, err := Open(dir)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, filepath.Join(dir, FileName), m.Path())
	assert.FileExists(t, m.Path())
}

func TestManifest_GetMiss(t *testing.T) {
	m := openManifest(t)

	entry, err := m.Get("debug")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestManifest_StoreAndGet(t *testing.T) {
	m := openManifest(t)
	dir := t.TempDir()

	libPath := filepath.Join(dir, "libkstd.a")
	require.NoError(t, os.WriteFile(libPath, []byte("archive"), 0o644))

	bc := registry.NewContext()
	ctx := context.Background()
	require.NoError(t, bc.Libraries.Register(ctx, "kstd", &registry.Artifact{Name: "kstd", Kind: registry.KindStaticLibrary, Path: libPath}))
	require.NoError(t, bc.Programs.Register(ctx, "demo", &registry.Artifact{Name: "demo", Kind: registry.KindProgram, Path: filepath.Join(dir, "demo")}))

	p := testProfile(t, "debug")
	require.NoError(t, m.Store(NewEntry(p, bc, false, true)))

	entry, err := m.Get("debug")
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, "debug", entry.Profile)
	assert.Equal(t, "debug", entry.Kind)
	assert.True(t, entry.Success)
	assert.False(t, entry.Stale(p))
	assert.Equal(t, 2, entry.Count())

	require.Len(t, entry.Libraries, 1)
	assert.Equal(t, "kstd", entry.Libraries[0].Name)
	assert.NotEmpty(t, entry.Libraries[0].Digest)

	require.Len(t, entry.Programs, 1)
	assert.Empty(t, entry.Programs[0].Digest)
	assert.Equal(t, []string{filepath.Join(dir, "demo")}, entry.Missing())
}

func TestManifest_StoreReplaces(t *testing.T) {
	m := openManifest(t)
	p := testProfile(t, "release")

	require.NoError(t, m.Store(NewEntry(p, registry.NewContext(), true, false)))
	require.NoError(t, m.Store(NewEntry(p, registry.NewContext(), false, true)))

	count, err := m.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	entry, err := m.Get("release")
	require.NoError(t, err)
	assert.True(t, entry.Success)
	assert.False(t, entry.DryRun)
}

func TestManifest_StoreRequiresProfile(t *testing.T) {
	m := openManifest(t)
	assert.Error(t, m.Store(&Entry{}))
}

func TestManifest_ListSorted(t *testing.T) {
	m := openManifest(t)

	for _, kind := range []string{"release", "beta", "debug"} {
		require.NoError(t, m.Store(NewEntry(testProfile(t, kind), registry.NewContext(), false, true)))
	}

	entries, err := m.List()
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Profile)
	}
	assert.Equal(t, []string{"beta", "debug", "release"}, names)
}

func TestManifest_DeleteAndClear(t *testing.T) {
	m := openManifest(t)

	for _, kind := range []string{"debug", "release"} {
		require.NoError(t, m.Store(NewEntry(testProfile(t, kind), registry.NewContext(), false, true)))
	}

	require.NoError(t, m.Delete("debug"))
	entry, err := m.Get("debug")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, m.Clear())
	count, err := m.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNewEntry_LinkedTestsOnly(t *testing.T) {
	bc := registry.NewContext()
	ctx := context.Background()

	require.NoError(t, bc.Tests.AddObject("unit", &registry.Artifact{Name: "a.o", Path: "a.o"}))
	require.NoError(t, bc.Tests.AddObject("pending", &registry.Artifact{Name: "b.o", Path: "b.o"}))

	_, err := bc.Tests.LinkProgram(ctx, "unit", func(suite string, objects []*registry.Artifact) (*registry.Artifact, error) {
		return &registry.Artifact{Name: suite, Kind: registry.KindTestProgram, Path: "/build/debug/test/unit"}, nil
	})
	require.NoError(t, err)

	entry := NewEntry(testProfile(t, "debug"), bc, true, true)
	require.Len(t, entry.Tests, 1)
	assert.Equal(t, "unit", entry.Tests[0].Name)
	assert.Equal(t, "/build/debug/test/unit", entry.Tests[0].Path)
}
