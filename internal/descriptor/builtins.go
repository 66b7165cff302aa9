package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"

	"github.com/Norgate-AV/buildenv/internal/logging"
	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/registry"
)

// * Helpers

// stringList accepts a single string or any iterable of strings
func stringList(v starlark.Value, field string) ([]string, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}

	if s, ok := v.(starlark.String); ok {
		return []string{s.GoString()}, nil
	}

	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, eris.Errorf("expected %s to be a string or a list of strings but found %s", field, v.Type())
	}

	result := make([]string, 0)
	iter := iterable.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		s, ok := item.(starlark.String)
		if !ok {
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}

		result = append(result, s.GoString())
	}

	return result, nil
}

func stringsToList(items []string) *starlark.List {
	values := make([]starlark.Value, 0, len(items))
	for _, item := range items {
		values = append(values, starlark.String(item))
	}

	return starlark.NewList(values)
}

func logAt(thread *starlark.Thread, level zerolog.Level, msg string) {
	sc := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	logging.Log(sc.ctx).WithLevel(level).
		Str("profile", sc.scope.Builder.Profile.Name).
		Msgf("%s:%d:%d: %s", sc.simplify(sc.filepath), pos.Line, pos.Col, msg)
}

func logBuiltin(level zerolog.Level) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var message string

		err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
		if err != nil {
			return nil, err
		}

		logAt(thread, level, message)
		return starlark.None, nil
	}
}

// * Logging

var (
	starInfo  = logBuiltin(zerolog.InfoLevel)
	starDebug = logBuiltin(zerolog.DebugLevel)
	starWarn  = logBuiltin(zerolog.WarnLevel)
	starError = logBuiltin(zerolog.ErrorLevel)
)

// * Filesystem

func glob(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, eris.Errorf("%s: unexpected keyword arguments", fn.Name())
	}

	sc := getCtx(thread)
	base := filepath.Dir(sc.filepath)
	seen := make(map[string]bool)
	matches := make([]string, 0)

	for idx, arg := range args {
		pattern, ok := arg.(starlark.String)
		if !ok {
			return nil, eris.Errorf("%s: only accepts string arguments but argument %d was a %s", fn.Name(), idx, arg.Type())
		}

		found, err := filepath.Glob(filepath.Join(base, pattern.GoString()))
		if err != nil {
			return nil, eris.Wrapf(err, "%s: bad pattern %s", fn.Name(), pattern.GoString())
		}

		for _, match := range found {
			rel, err := filepath.Rel(base, match)
			if err != nil || seen[rel] {
				continue
			}

			seen[rel] = true
			matches = append(matches, filepath.ToSlash(rel))
		}
	}

	sort.Strings(matches)
	return stringsToList(matches), nil
}

func starIsdir(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(getCtx(thread).resolve(path))
	return starlark.Bool(err == nil && info.IsDir()), nil
}

func starIsfile(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(getCtx(thread).resolve(path))
	return starlark.Bool(err == nil && info.Mode().IsRegular()), nil
}

func readYaml(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(getCtx(thread).resolve(path))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", path)
	}

	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", path)
	}

	return toStarlark(value)
}

func toStarlark(value interface{}) (starlark.Value, error) {
	switch v := value.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(v), nil
	case bool:
		return starlark.Bool(v), nil
	case int:
		return starlark.MakeInt(v), nil
	case int64:
		return starlark.MakeInt64(v), nil
	case uint64:
		return starlark.MakeUint64(v), nil
	case float64:
		return starlark.Float(v), nil
	case []interface{}:
		items := make([]starlark.Value, 0, len(v))
		for _, item := range v {
			converted, err := toStarlark(item)
			if err != nil {
				return nil, err
			}

			items = append(items, converted)
		}

		return starlark.NewList(items), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dict := starlark.NewDict(len(v))
		for _, k := range keys {
			converted, err := toStarlark(v[k])
			if err != nil {
				return nil, err
			}

			if err := dict.SetKey(starlark.String(k), converted); err != nil {
				return nil, err
			}
		}

		return dict, nil
	}

	return nil, eris.Errorf("encountered unsupported type %T", value)
}

// * Profile

func appendFlags(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, eris.Errorf("%s: only accepts keyword arguments", fn.Name())
	}

	sc := getCtx(thread)
	var flags profile.Flags

	for _, kv := range kwargs {
		key := string(kv[0].(starlark.String))

		values, err := stringList(kv[1], key)
		if err != nil {
			return nil, eris.Wrap(err, fn.Name())
		}

		switch key {
		case "cflags":
			flags.CFlags = append(flags.CFlags, values...)
		case "cxxflags":
			flags.CXXFlags = append(flags.CXXFlags, values...)
		case "ccflags":
			flags.CCFlags = append(flags.CCFlags, values...)
		case "cppdefines":
			flags.CPPDefines = append(flags.CPPDefines, values...)
		case "linkflags":
			flags.LinkFlags = append(flags.LinkFlags, values...)
		case "swiftflags":
			flags.SwiftFlags = append(flags.SwiftFlags, values...)
		case "cpppath":
			for _, v := range values {
				flags.CPPPath = append(flags.CPPPath, sc.resolve(v))
			}
		case "libpath":
			for _, v := range values {
				flags.LibPath = append(flags.LibPath, sc.resolve(v))
			}
		default:
			return nil, eris.Errorf("%s: unexpected keyword argument %s", fn.Name(), key)
		}
	}

	if err := sc.scope.Builder.Profile.Append(flags); err != nil {
		return nil, err
	}

	return starlark.None, nil
}

// * Artifacts

func object(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var src string
	var shared bool

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "src", &src, "shared?", &shared)
	if err != nil {
		return nil, err
	}

	obj, err := getCtx(thread).scope.Builder.Object(src, shared)
	if err != nil {
		return nil, err
	}

	return starlark.String(obj.Path), nil
}

func buildLibrary(thread *starlark.Thread, fnName string, args starlark.Tuple, kwargs []starlark.Tuple, shared *bool) (starlark.Value, error) {
	var name string
	var srcs starlark.Value
	var isShared bool

	var err error
	if shared == nil {
		err = starlark.UnpackArgs(fnName, args, kwargs, "name", &name, "srcs", &srcs, "shared?", &isShared)
	} else {
		err = starlark.UnpackArgs(fnName, args, kwargs, "name", &name, "srcs", &srcs)
		isShared = *shared
	}
	if err != nil {
		return nil, err
	}

	sources, err := stringList(srcs, "srcs")
	if err != nil {
		return nil, eris.Wrap(err, fnName)
	}

	sc := getCtx(thread)
	lib, err := sc.scope.Builder.Library(sc.ctx, name, sources, isShared)
	if err != nil {
		return nil, err
	}

	return starlark.String(lib.Path), nil
}

func library(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return buildLibrary(thread, fn.Name(), args, kwargs, nil)
}

func staticLibrary(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	shared := false
	return buildLibrary(thread, fn.Name(), args, kwargs, &shared)
}

func sharedLibrary(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	shared := true
	return buildLibrary(thread, fn.Name(), args, kwargs, &shared)
}

func program(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var srcs, libs starlark.Value

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "srcs", &srcs, "libs?", &libs)
	if err != nil {
		return nil, err
	}

	sources, err := stringList(srcs, "srcs")
	if err != nil {
		return nil, eris.Wrap(err, fn.Name())
	}

	libNames, err := stringList(libs, "libs")
	if err != nil {
		return nil, eris.Wrap(err, fn.Name())
	}

	sc := getCtx(thread)
	prog, err := sc.scope.Builder.Program(sc.ctx, name, sources, libNames)
	if err != nil {
		return nil, err
	}

	return starlark.String(prog.Path), nil
}

func test(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var srcs starlark.Value
	suite := registry.DefaultSuite

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "srcs", &srcs, "suite?", &suite)
	if err != nil {
		return nil, err
	}

	sources, err := stringList(srcs, "srcs")
	if err != nil {
		return nil, eris.Wrap(err, fn.Name())
	}

	objects, err := getCtx(thread).scope.Builder.TestObjects(sources, suite)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(objects))
	for _, o := range objects {
		paths = append(paths, o.Path)
	}

	return stringsToList(paths), nil
}

func testProgram(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	suite := registry.DefaultSuite

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "suite?", &suite)
	if err != nil {
		return nil, err
	}

	sc := getCtx(thread)
	prog, err := sc.scope.Builder.TestProgram(sc.ctx, suite)
	if err != nil {
		return nil, err
	}

	return starlark.String(prog.Path), nil
}

func lookupIn(r *registry.Registry) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string

		err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &name)
		if err != nil {
			return nil, err
		}

		if a, ok := r.Lookup(name); ok {
			return starlark.String(a.Path), nil
		}

		return starlark.None, nil
	}
}

func lookupLib(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return lookupIn(getCtx(thread).scope.Builder.Context.Libraries)(thread, fn, args, kwargs)
}

func lookupProg(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return lookupIn(getCtx(thread).scope.Builder.Context.Programs)(thread, fn, args, kwargs)
}

// * Nesting

func subdir(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var clone bool

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "clone?", &clone)
	if err != nil {
		return nil, err
	}

	sc := getCtx(thread)
	if sc.scope.Subdir == nil {
		return nil, fmt.Errorf("%s: nested directories are not supported here", fn.Name())
	}

	if err := sc.scope.Subdir(sc.ctx, name, clone); err != nil {
		return nil, err
	}

	return starlark.None, nil
}
