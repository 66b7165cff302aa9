package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/manifest"
)

func fakeTools(t *testing.T, missing ...string) {
	t.Helper()

	origLookPath, origInteractive := lookPath, interactive
	t.Cleanup(func() {
		lookPath = origLookPath
		interactive = origInteractive
	})

	lookPath = func(name string) (string, bool) {
		for _, m := range missing {
			if m == name {
				return "", false
			}
		}

		return "/usr/bin/" + name, true
	}
	interactive = func() bool { return false }

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return root
}

func sampleProject(t *testing.T) string {
	return writeProject(t, map[string]string{
		"lib/kstd/BUILD.star":        `library("kstd", glob("*.c"))`,
		"lib/kstd/CString.c":         "",
		"lib/kstd/include/CString.h": "",
		"src/BUILD.star":             `program("app", glob("*.c"), libs = ["kstd"])`,
		"src/main.c":                 "",
		"test/BUILD.star":            "test(glob(\"*.cpp\"))\ntest_program()\n",
		"test/test_cstring.cpp":      "",
	})
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestBuild_DryRun(t *testing.T) {
	fakeTools(t)
	project := sampleProject(t)
	build := filepath.Join(project, "build")

	stdout, _, err := execute(t, "build", "-C", project, "-n")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	require.Len(t, lines, 8)

	assert.Equal(t, "             Building (C): "+filepath.Join(build, "debug", "lib", "kstd", "CString.o"), lines[0])
	assert.Equal(t, "                Archiving: "+filepath.Join(build, "debug", "lib", "kstd", "libkstd.a"), lines[1])
	assert.Equal(t, "                 Indexing: "+filepath.Join(build, "debug", "lib", "kstd", "libkstd.a"), lines[2])
	assert.Equal(t, "             Building (C): "+filepath.Join(build, "debug", "src", "main.o"), lines[3])
	assert.Equal(t, "                  Linking: "+filepath.Join(build, "debug", "src", "app"+exeSuffix()), lines[4])
	assert.Equal(t, "           Building (C++): "+filepath.Join(build, "debug", "test", "test_cstring.o"), lines[5])
	assert.Equal(t, "                  Linking: "+filepath.Join(build, "debug", "test", "test"+exeSuffix()), lines[6])
	assert.Contains(t, lines[7], "--gtest_color=yes")

	assert.NoDirExists(t, filepath.Join(build, "debug", "lib"), "dry run must not create output directories")
}

func TestBuild_DefaultCommandAndModes(t *testing.T) {
	fakeTools(t)
	project := sampleProject(t)

	stdout, _, err := execute(t, "-C", project, "-n", "mode=debug,release", "succinct=0")
	require.NoError(t, err)

	assert.Contains(t, stdout, "  [Building (C)] "+filepath.Join(project, "build", "debug", "lib", "kstd", "CString.o"))
	assert.Contains(t, stdout, filepath.Join(project, "build", "release", "src", "main.o"))

	m, err := manifest.Open(filepath.Join(project, "build"))
	require.NoError(t, err)
	defer m.Close()

	entries, err := m.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "debug", entries[0].Profile)
	assert.Equal(t, "release", entries[1].Profile)
	assert.True(t, entries[0].DryRun)
	assert.Len(t, entries[0].Libraries, 1)
	assert.Len(t, entries[0].Programs, 1)
	assert.Len(t, entries[0].Tests, 1)
}

func TestBuild_RunTestsDryRun(t *testing.T) {
	fakeTools(t)
	project := sampleProject(t)

	stdout, _, err := execute(t, "build", "-C", project, "-n", "-t")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Testing: "+filepath.Join(project, "build", "debug", "test", "test"+exeSuffix()))
	assert.NotContains(t, stdout, "--gtest_color=yes")
}

func TestBuild_MissingToolsAreNotFatal(t *testing.T) {
	fakeTools(t, "clang", "gcc", "swiftc")
	project := sampleProject(t)

	stdout, stderr, err := execute(t, "build", "-C", project, "-n")
	require.NoError(t, err)

	assert.Contains(t, stderr, "clang not found, using the literal name")
	assert.NotContains(t, stderr, "swiftc not found")
	assert.Contains(t, stdout, "Building (C)")
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		args     []string
		wantCode int
	}{
		{
			name:     "bogus mode",
			files:    map[string]string{"src/BUILD.star": ""},
			args:     []string{"mode=bogus"},
			wantCode: codes.ConfigurationError,
		},
		{
			name:     "unknown option",
			files:    map[string]string{"src/BUILD.star": ""},
			args:     []string{"target=34"},
			wantCode: codes.ConfigurationError,
		},
		{
			name:     "missing source tree",
			files:    map[string]string{"README": ""},
			wantCode: codes.DirectoryNotFound,
		},
		{
			name: "descriptor failure",
			files: map[string]string{
				"src/BUILD.star": `fail("unsupported platform")`,
			},
			wantCode: codes.DescriptorError,
		},
		{
			name: "unknown library",
			files: map[string]string{
				"src/BUILD.star": `program("app", ["main.c"], libs = ["nope"])`,
				"src/main.c":     "",
			},
			wantCode: codes.DescriptorError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeTools(t)
			project := writeProject(t, tt.files)

			args := append([]string{"build", "-C", project, "-n"}, tt.args...)
			_, _, err := execute(t, args...)

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, codes.ExitCode(err))
		})
	}
}

func TestBuild_DuplicateLibraryIsLogged(t *testing.T) {
	fakeTools(t)
	project := writeProject(t, map[string]string{
		"lib/a/BUILD.star": `library("dup", ["a.c"])`,
		"lib/a/a.c":        "",
		"lib/b/BUILD.star": `library("dup", ["b.c"])`,
		"lib/b/b.c":        "",
		"src/BUILD.star":   "",
	})

	stdout, stderr, err := execute(t, "build", "-C", project, "-n")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(stderr, `duplicate library "dup"`))
	assert.Contains(t, stdout, filepath.Join(project, "build", "debug", "lib", "a", "libdup.a"))
	assert.NotContains(t, stdout, filepath.Join(project, "build", "debug", "lib", "b"))
}

func TestBuild_UnlinkedSuiteWarns(t *testing.T) {
	fakeTools(t)
	project := writeProject(t, map[string]string{
		"src/BUILD.star":  "",
		"test/BUILD.star": `test(["a.cpp"], suite = "unit")`,
		"test/a.cpp":      "",
	})

	stdout, stderr, err := execute(t, "build", "-C", project, "-n")
	require.NoError(t, err)

	assert.Contains(t, stderr, `Test suite "unit" has 1 objects but no test_program`)
	assert.NotContains(t, stdout, "--gtest_color=yes")
}

func exeSuffix() string {
	if filepath.Separator == '\\' {
		return ".exe"
	}

	return ""
}
