package registry

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/utils"
)

// ColorFlag is passed to every test program run
const ColorFlag = "--gtest_color=yes"

// DefaultSuite is the suite name used when none is given
const DefaultSuite = "test"

// Suite accumulates the objects of one test program until it is linked
type Suite struct {
	Name    string
	Objects []*Artifact
	Program *Artifact
}

// Linked reports whether the suite's program has been linked
func (s *Suite) Linked() bool {
	return s.Program != nil
}

// LinkFunc links objects into a test program
type LinkFunc func(suite string, objects []*Artifact) (*Artifact, error)

// TestRegistry maps suite names to their objects and program
type TestRegistry struct {
	suites map[string]*Suite
	order  []string
	notify func(ctx context.Context, registry string, a *Artifact)
}

// NewTestRegistry creates an empty test registry
func NewTestRegistry() *TestRegistry {
	return &TestRegistry{
		suites: make(map[string]*Suite),
	}
}

// AddObject appends obj to the named suite, creating the suite on first
// use. A linked suite is immutable.
func (t *TestRegistry) AddObject(name string, obj *Artifact) error {
	if name == "" {
		name = DefaultSuite
	}

	s, ok := t.suites[name]
	if !ok {
		s = &Suite{Name: name}
		t.suites[name] = s
		t.order = append(t.order, name)
	}

	if s.Linked() {
		return eris.Wrapf(codes.ErrSuiteLinked, "cannot add %s to suite %q", obj.Path, name)
	}

	s.Objects = append(s.Objects, obj)
	return nil
}

// Suite returns the named suite
func (t *TestRegistry) Suite(name string) (*Suite, bool) {
	s, ok := t.suites[name]
	return s, ok
}

// Names returns suite names in the order they were first used
func (t *TestRegistry) Names() []string {
	return append([]string(nil), t.order...)
}

// LinkProgram links the suite's objects with link and stores the result.
// Linking an already linked suite returns the existing program.
func (t *TestRegistry) LinkProgram(ctx context.Context, name string, link LinkFunc) (*Artifact, error) {
	if name == "" {
		name = DefaultSuite
	}

	s, ok := t.suites[name]
	if !ok || len(s.Objects) == 0 {
		return nil, eris.Wrapf(codes.ErrUnknownArtifact, "test suite %q has no objects", name)
	}

	if s.Linked() {
		return s.Program, nil
	}

	objects := append([]*Artifact(nil), s.Objects...)
	prog, err := link(name, objects)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to link test suite %q", name)
	}

	s.Program = prog
	if t.notify != nil {
		t.notify(ctx, "test", prog)
	}

	return prog, nil
}

// RunCommand executes one linked test program
type RunCommand struct {
	Suite   string
	Program string
	Args    []string
}

// Argv returns the program followed by its arguments
func (c RunCommand) Argv() []string {
	return append([]string{c.Program}, c.Args...)
}

// String renders the command as a shell-quoted line
func (c RunCommand) String() string {
	return utils.QuoteArgs(c.Argv())
}

// RunAll returns a run command for every linked suite, in the order suites
// were first used. Unlinked suites are skipped.
func (t *TestRegistry) RunAll() []RunCommand {
	cmds := make([]RunCommand, 0, len(t.order))

	for _, name := range t.order {
		s := t.suites[name]
		if !s.Linked() {
			continue
		}

		cmds = append(cmds, RunCommand{
			Suite:   name,
			Program: s.Program.Path,
			Args:    []string{ColorFlag},
		})
	}

	return cmds
}
