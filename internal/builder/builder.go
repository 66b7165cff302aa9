// Package builder turns sources into planned build actions and registers
// the resulting artifacts. Every constructor builds first and registers
// second.
package builder

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/registry"
)

// TestFrameworkLibrary is linked into every test program
const TestFrameworkLibrary = "gtest"

// Builder declares actions for one source directory
type Builder struct {
	Profile *profile.Profile
	Context *registry.Context
	Plan    *Plan

	// SrcDir resolves relative source paths; OutDir receives outputs
	SrcDir string
	OutDir string
}

// New creates a builder for srcDir writing into outDir
func New(p *profile.Profile, bc *registry.Context, plan *Plan, srcDir, outDir string) *Builder {
	return &Builder{
		Profile: p,
		Context: bc,
		Plan:    plan,
		SrcDir:  srcDir,
		OutDir:  outDir,
	}
}

type language int

const (
	langUnknown language = iota
	langC
	langCXX
	langAsm
	langAsmCPP
	langSwift
)

func classify(source string) language {
	ext := filepath.Ext(source)
	switch ext {
	case ".c":
		return langC
	case ".cc", ".cpp", ".cxx", ".c++", ".C":
		return langCXX
	case ".s":
		return langAsm
	case ".S", ".sx":
		return langAsmCPP
	case ".swift":
		return langSwift
	}

	return langUnknown
}

func (b *Builder) source(src string) string {
	if filepath.IsAbs(src) {
		return filepath.Clean(src)
	}

	return filepath.Join(b.SrcDir, src)
}

func (b *Builder) output(src, suffix string) string {
	rel, err := filepath.Rel(b.SrcDir, src)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(src)
	}

	return filepath.Join(b.OutDir, strings.TrimSuffix(rel, filepath.Ext(rel))+suffix)
}

// Object plans the compilation of one source file. shared selects
// position-independent objects for shared libraries.
func (b *Builder) Object(src string, shared bool) (*registry.Artifact, error) {
	p := b.Profile
	source := b.source(src)
	lang := classify(source)

	suffix := ".o"
	if shared {
		suffix = ".os"
	}
	target := b.output(source, suffix)

	var kind profile.Action
	var argv []string

	switch lang {
	case langC:
		kind = profile.ActionCompileC
		if shared {
			kind = profile.ActionCompileSharedC
		}
		argv = b.compile(p.CC, target, p.CFlags, shared, source)
	case langCXX:
		kind = profile.ActionCompileCXX
		if shared {
			kind = profile.ActionCompileSharedCXX
		}
		argv = b.compile(p.CXX, target, p.CXXFlags, shared, source)
	case langAsm:
		kind = profile.ActionAssemble
		argv = []string{p.CC, "-o", target, "-c", source}
	case langAsmCPP:
		kind = profile.ActionAssembleCPP
		argv = b.compile(p.CC, target, nil, shared, source)
	case langSwift:
		kind = profile.ActionCompileSwift
		argv = append([]string{p.SwiftC, "-o", target, "-c"}, p.SwiftFlags...)
		argv = append(argv, source)
	default:
		return nil, eris.Wrapf(codes.ErrDescriptor, "unsupported source type %q", src)
	}

	b.Plan.Add(Action{Kind: kind, Target: target, Sources: []string{source}, Argv: argv})

	return &registry.Artifact{
		Name:    filepath.Base(target),
		Kind:    registry.KindObject,
		Path:    target,
		Sources: []string{source},
		Origin:  b.SrcDir,
	}, nil
}

func (b *Builder) compile(compiler, target string, langFlags []string, shared bool, source string) []string {
	p := b.Profile

	argv := []string{compiler, "-o", target, "-c"}
	argv = append(argv, langFlags...)
	argv = append(argv, p.CCFlags...)
	if shared {
		argv = append(argv, "-fPIC")
	}

	for _, d := range p.CPPDefines {
		argv = append(argv, "-D"+d)
	}

	for _, inc := range p.CPPPath {
		argv = append(argv, "-I"+inc)
	}

	return append(argv, source)
}

// Objects plans every source and returns the objects in source order
func (b *Builder) Objects(sources []string, shared bool) ([]*registry.Artifact, error) {
	objects := make([]*registry.Artifact, 0, len(sources))

	for _, src := range sources {
		obj, err := b.Object(src, shared)
		if err != nil {
			return nil, err
		}

		objects = append(objects, obj)
	}

	return objects, nil
}

// Library plans a static or shared library and registers it. A duplicate
// name is logged by the registry, plans nothing and returns the library
// registered first.
func (b *Builder) Library(ctx context.Context, name string, sources []string, shared bool) (*registry.Artifact, error) {
	if existing, ok := b.duplicate(ctx, b.Context.Libraries, name); ok {
		return existing, nil
	}

	lib, err := b.buildLibrary(name, sources, shared)
	if err != nil {
		return nil, err
	}

	if err := b.Context.Libraries.Register(ctx, name, lib); err != nil {
		return nil, err
	}

	return lib, nil
}

// duplicate reports the artifact already registered under name in r. The
// rejected declaration goes through Register so it is logged like any
// other duplicate.
func (b *Builder) duplicate(ctx context.Context, r *registry.Registry, name string) (*registry.Artifact, bool) {
	existing, ok := r.Lookup(name)
	if !ok || name == "" {
		return nil, false
	}

	err := r.Register(ctx, name, &registry.Artifact{Name: name, Origin: b.SrcDir})
	return existing, eris.Is(err, codes.ErrDuplicateRegistration)
}

func (b *Builder) buildLibrary(name string, sources []string, shared bool) (*registry.Artifact, error) {
	if name == "" {
		return nil, eris.Wrap(codes.ErrDescriptor, "library needs a name")
	}

	p := b.Profile
	objects, err := b.Objects(sources, shared)
	if err != nil {
		return nil, eris.Wrapf(err, "library %q", name)
	}

	objPaths := paths(objects)

	if shared {
		target := filepath.Join(b.OutDir, "lib"+name+sharedSuffix())

		argv := []string{p.Link, "-o", target, "-shared"}
		argv = append(argv, p.LinkFlags...)
		argv = append(argv, objPaths...)
		argv = append(argv, libPathFlags(p)...)

		b.Plan.Add(Action{Kind: profile.ActionLinkShared, Target: target, Sources: objPaths, Argv: argv})

		return &registry.Artifact{Name: name, Kind: registry.KindSharedLibrary, Path: target, Sources: sourcePaths(objects), Origin: b.SrcDir}, nil
	}

	target := filepath.Join(b.OutDir, "lib"+name+".a")

	archive := append([]string{p.AR, "rc", target}, objPaths...)
	b.Plan.Add(Action{Kind: profile.ActionArchive, Target: target, Sources: objPaths, Argv: archive})
	b.Plan.Add(Action{Kind: profile.ActionIndex, Target: target, Sources: []string{target}, Argv: []string{p.Ranlib, target}})

	return &registry.Artifact{Name: name, Kind: registry.KindStaticLibrary, Path: target, Sources: sourcePaths(objects), Origin: b.SrcDir}, nil
}

// Program plans an executable linked against the named local libraries and
// registers it. Each library must already be registered. A duplicate name
// plans nothing and returns the program registered first.
func (b *Builder) Program(ctx context.Context, name string, sources []string, libs []string) (*registry.Artifact, error) {
	if name == "" {
		return nil, eris.Wrap(codes.ErrDescriptor, "program needs a name")
	}

	if existing, ok := b.duplicate(ctx, b.Context.Programs, name); ok {
		return existing, nil
	}

	objects, err := b.Objects(sources, false)
	if err != nil {
		return nil, eris.Wrapf(err, "program %q", name)
	}

	libArgs := make([]string, 0, len(libs))
	for _, lib := range libs {
		a, ok := b.Context.Libraries.Lookup(lib)
		if !ok {
			return nil, eris.Wrapf(codes.ErrUnknownArtifact, "program %q links unknown library %q", name, lib)
		}

		libArgs = append(libArgs, a.Path)
	}

	prog := b.link(name, registry.KindProgram, objects, libArgs)

	if err := b.Context.Programs.Register(ctx, name, prog); err != nil {
		return nil, err
	}

	return prog, nil
}

func (b *Builder) link(name string, kind registry.Kind, objects []*registry.Artifact, libArgs []string) *registry.Artifact {
	p := b.Profile
	target := filepath.Join(b.OutDir, name+programSuffix())
	objPaths := paths(objects)

	argv := []string{p.Link, "-o", target}
	argv = append(argv, p.LinkFlags...)
	argv = append(argv, objPaths...)
	argv = append(argv, libPathFlags(p)...)
	argv = append(argv, libArgs...)

	b.Plan.Add(Action{Kind: profile.ActionLink, Target: target, Sources: objPaths, Argv: argv})

	return &registry.Artifact{Name: name, Kind: kind, Path: target, Sources: sourcePaths(objects), Origin: b.SrcDir}
}

// TestObjects plans test sources and adds the objects to suite
func (b *Builder) TestObjects(sources []string, suite string) ([]*registry.Artifact, error) {
	objects, err := b.Objects(sources, false)
	if err != nil {
		return nil, err
	}

	for _, obj := range objects {
		if err := b.Context.Tests.AddObject(suite, obj); err != nil {
			return nil, err
		}
	}

	return objects, nil
}

// TestProgram links suite's objects with the test framework. A registered
// gtest library is linked by path, otherwise -lgtest is passed.
func (b *Builder) TestProgram(ctx context.Context, suite string) (*registry.Artifact, error) {
	framework := "-l" + TestFrameworkLibrary
	if lib, ok := b.Context.Libraries.Lookup(TestFrameworkLibrary); ok {
		framework = lib.Path
	}

	return b.Context.Tests.LinkProgram(ctx, suite, func(name string, objects []*registry.Artifact) (*registry.Artifact, error) {
		return b.link(name, registry.KindTestProgram, objects, []string{framework}), nil
	})
}

func libPathFlags(p *profile.Profile) []string {
	flags := make([]string, 0, len(p.LibPath))
	for _, dir := range p.LibPath {
		flags = append(flags, "-L"+dir)
	}

	return flags
}

func paths(artifacts []*registry.Artifact) []string {
	out := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, a.Path)
	}

	return out
}

func sourcePaths(objects []*registry.Artifact) []string {
	out := make([]string, 0, len(objects))
	for _, o := range objects {
		out = append(out, o.Sources...)
	}

	return out
}

func sharedSuffix() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	}

	return ".so"
}

func programSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}

	return ""
}
