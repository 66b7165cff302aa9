// Package descriptor runs the per-directory BUILD.star files. A descriptor
// is a Starlark script whose builtins declare objects, libraries, programs
// and tests against the directory's builder.
package descriptor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"

	"github.com/Norgate-AV/buildenv/internal/builder"
	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/logging"
)

// FileName is the descriptor looked up in every processed directory
const FileName = "BUILD.star"

// SubdirFunc processes a nested directory of the current one
type SubdirFunc func(ctx context.Context, name string, clone bool) error

// Scope is what a descriptor can see and change
type Scope struct {
	Builder *builder.Builder
	Subdir  SubdirFunc

	// Root shortens paths in log messages
	Root string
}

type scriptCtx struct {
	ctx      context.Context
	filepath string
	scope    *Scope
}

const localKey = "descriptorCtx"

func getCtx(thread *starlark.Thread) *scriptCtx {
	return thread.Local(localKey).(*scriptCtx)
}

// Run executes the descriptor at path
func Run(ctx context.Context, path string, scope *Scope) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	script, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "failed to read %s", path)
	}

	sc := &scriptCtx{
		ctx:      ctx,
		filepath: path,
		scope:    scope,
	}

	display := sc.simplify(path)
	thread := &starlark.Thread{
		Name: display,
		Print: func(thread *starlark.Thread, msg string) {
			logging.Log(ctx).Info().Str("path", path).Msg(msg)
		},
	}
	thread.SetLocal(localKey, sc)

	logging.Log(ctx).Info().Str("profile", scope.Builder.Profile.Name).Msgf("Reading %s", display)

	_, err = starlark.ExecFile(thread, display, script, predeclared(scope))
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			if cause := evalErr.Unwrap(); cause != nil && codes.ExitCode(cause) != codes.Failure {
				return eris.Wrapf(cause, "%s", evalErr.Backtrace())
			}

			return eris.Wrapf(codes.ErrDescriptor, "failed to execute %s:\n%s", display, evalErr.Backtrace())
		}

		return eris.Wrapf(codes.ErrDescriptor, "failed to execute %s: %v", display, err)
	}

	return nil
}

func predeclared(scope *Scope) starlark.StringDict {
	b := scope.Builder

	return starlark.StringDict{
		"PROFILE": starlark.String(b.Profile.Name),
		"OS":      starlark.String(runtime.GOOS),
		"ARCH":    starlark.String(runtime.GOARCH),
		"SRC_DIR": starlark.String(b.SrcDir),
		"OUT_DIR": starlark.String(b.OutDir),

		"info":  starlark.NewBuiltin("info", starInfo),
		"debug": starlark.NewBuiltin("debug", starDebug),
		"warn":  starlark.NewBuiltin("warn", starWarn),
		"error": starlark.NewBuiltin("error", starError),

		"glob":      starlark.NewBuiltin("glob", glob),
		"isdir":     starlark.NewBuiltin("isdir", starIsdir),
		"isfile":    starlark.NewBuiltin("isfile", starIsfile),
		"read_yaml": starlark.NewBuiltin("read_yaml", readYaml),

		"append":         starlark.NewBuiltin("append", appendFlags),
		"object":         starlark.NewBuiltin("object", object),
		"library":        starlark.NewBuiltin("library", library),
		"static_library": starlark.NewBuiltin("static_library", staticLibrary),
		"shared_library": starlark.NewBuiltin("shared_library", sharedLibrary),
		"program":        starlark.NewBuiltin("program", program),
		"test":           starlark.NewBuiltin("test", test),
		"test_program":   starlark.NewBuiltin("test_program", testProgram),
		"lib":            starlark.NewBuiltin("lib", lookupLib),
		"prog":           starlark.NewBuiltin("prog", lookupProg),
		"subdir":         starlark.NewBuiltin("subdir", subdir),
	}
}

// resolve makes p absolute relative to the descriptor's directory
func (sc *scriptCtx) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(filepath.Dir(sc.filepath), p)
}

// simplify shortens path relative to the project root for messages
func (sc *scriptCtx) simplify(path string) string {
	root := sc.scope.Root
	if root == "" {
		return path
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}

	return filepath.ToSlash(rel)
}
