// Package dispatch walks the project directories and runs each one's
// descriptor with either the shared profile or a clone of it.
package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/Norgate-AV/buildenv/internal/builder"
	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/descriptor"
	"github.com/Norgate-AV/buildenv/internal/logging"
	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/registry"
)

// IncludeDir is added to the search path when a directory has one
const IncludeDir = "include"

// Kind selects the output subtree and whether the profile is cloned
type Kind string

const (
	KindLibrary Kind = "lib"
	KindSource  Kind = "src"
	KindTest    Kind = "test"
)

// Clones reports whether directories of this kind get their own profile
func (k Kind) Clones() bool {
	return k == KindLibrary
}

// Dispatcher processes directories for one profile pass
type Dispatcher struct {
	Context  *registry.Context
	Plan     *builder.Plan
	BuildDir string

	// Root is the project directory, used to shorten log paths
	Root string
}

func New(bc *registry.Context, plan *builder.Plan, buildDir, root string) *Dispatcher {
	return &Dispatcher{
		Context:  bc,
		Plan:     plan,
		BuildDir: buildDir,
		Root:     root,
	}
}

// OutDir returns where outputs of directory name land for profile p
func (d *Dispatcher) OutDir(p *profile.Profile, kind Kind, name string) string {
	return filepath.Join(d.BuildDir, p.Name, string(kind), name)
}

// ProcessDirectory runs the descriptor of root/name. An include directory
// is appended to p itself, so later directories sharing p see it.
func (d *Dispatcher) ProcessDirectory(ctx context.Context, p *profile.Profile, root, name string, kind Kind) error {
	dir := filepath.Join(root, name)
	if err := requireDir(dir); err != nil {
		return err
	}

	if err := addInclude(p, dir); err != nil {
		return err
	}

	dp := p
	if kind.Clones() {
		dp = p.Clone()
	}

	return d.process(ctx, dp, dir, d.OutDir(p, kind, name))
}

// ProcessTree runs the descriptor of dir itself with the shared profile,
// writing into <build>/<profile>/<kind>
func (d *Dispatcher) ProcessTree(ctx context.Context, p *profile.Profile, dir string, kind Kind) error {
	if err := requireDir(dir); err != nil {
		return err
	}

	if err := addInclude(p, dir); err != nil {
		return err
	}

	return d.process(ctx, p, dir, d.OutDir(p, kind, ""))
}

// ProcessAll processes every immediate subdirectory of root in
// lexicographic order. Plain files are ignored.
func (d *Dispatcher) ProcessAll(ctx context.Context, p *profile.Profile, root string, kind Kind) error {
	if err := requireDir(root); err != nil {
		return err
	}

	names, err := Subdirectories(root)
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := d.ProcessDirectory(ctx, p, root, name, kind); err != nil {
			return err
		}
	}

	return nil
}

// Subdirectories lists the sorted names of root's immediate subdirectories
func Subdirectories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to list %s", root)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}

func (d *Dispatcher) process(ctx context.Context, p *profile.Profile, dir, outDir string) error {
	if p.Frozen() {
		return eris.Wrapf(codes.ErrProfileFrozen, "profile %s is already building, cannot read %s", p.Name, dir)
	}

	path := filepath.Join(dir, descriptor.FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.Log(ctx).Warn().
			Str("profile", p.Name).
			Str("path", dir).
			Msgf("No %s, skipping", descriptor.FileName)
		return nil
	}

	scope := &descriptor.Scope{
		Builder: builder.New(p, d.Context, d.Plan, dir, outDir),
		Root:    d.Root,
		Subdir: func(ctx context.Context, name string, clone bool) error {
			sub := filepath.Join(dir, name)
			if err := requireDir(sub); err != nil {
				return err
			}

			if err := addInclude(p, sub); err != nil {
				return err
			}

			sp := p
			if clone {
				sp = p.Clone()
			}

			return d.process(ctx, sp, sub, filepath.Join(outDir, name))
		},
	}

	return descriptor.Run(ctx, path, scope)
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return eris.Wrapf(codes.ErrDirectoryNotFound, "invalid source directory: %s", dir)
	}

	return nil
}

func addInclude(p *profile.Profile, dir string) error {
	inc := filepath.Join(dir, IncludeDir)

	info, err := os.Stat(inc)
	if err != nil || !info.IsDir() {
		return nil
	}

	return p.Append(profile.Flags{CPPPath: []string{inc}})
}
