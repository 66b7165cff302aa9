// Package registry holds the artifacts produced during one build pass.
// A Context lives for exactly one invocation and is passed explicitly
// through the dispatch pass.
package registry

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/logging"
)

// Kind classifies an artifact
type Kind string

const (
	KindObject        Kind = "object"
	KindStaticLibrary Kind = "static-library"
	KindSharedLibrary Kind = "shared-library"
	KindProgram       Kind = "program"
	KindTestProgram   Kind = "test-program"
)

// Artifact is a handle to one build product
type Artifact struct {
	Name    string
	Kind    Kind
	Path    string
	Sources []string

	// Origin is the source directory whose descriptor declared the artifact
	Origin string
}

// Hook observes successful registrations. registry is "library",
// "program" or "test".
type Hook func(ctx context.Context, registry string, a *Artifact)

// Registry maps names to artifacts. The first registration of a name wins.
type Registry struct {
	name    string
	entries map[string]*Artifact
	order   []string
	notify  func(ctx context.Context, registry string, a *Artifact)
}

// NewRegistry creates an empty registry. name is used in messages.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:    name,
		entries: make(map[string]*Artifact),
	}
}

// Register stores a under name. A name that is already present is logged
// as an error and rejected with ErrDuplicateRegistration; the existing
// artifact is kept and the caller may carry on.
func (r *Registry) Register(ctx context.Context, name string, a *Artifact) error {
	if existing, ok := r.entries[name]; ok {
		err := eris.Wrapf(codes.ErrDuplicateRegistration, "%s %q already registered from %s", r.name, name, existing.Origin)
		logging.Log(ctx).Error().
			Str("registry", r.name).
			Str("name", name).
			Str("path", a.Origin).
			Msgf("duplicate %s %q (first declared in %s)", r.name, name, existing.Origin)

		return err
	}

	r.entries[name] = a
	r.order = append(r.order, name)

	if r.notify != nil {
		r.notify(ctx, r.name, a)
	}

	return nil
}

// Lookup returns the artifact registered under name
func (r *Registry) Lookup(name string) (*Artifact, bool) {
	a, ok := r.entries[name]
	return a, ok
}

// Names returns registered names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All returns registered artifacts in registration order
func (r *Registry) All() []*Artifact {
	all := make([]*Artifact, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.entries[name])
	}

	return all
}

// Len returns the number of registered names
func (r *Registry) Len() int {
	return len(r.entries)
}

// Context bundles the registries of one build pass
type Context struct {
	Libraries *Registry
	Programs  *Registry
	Tests     *TestRegistry

	hooks []Hook
}

// NewContext creates a context with empty registries
func NewContext() *Context {
	c := &Context{
		Libraries: NewRegistry("library"),
		Programs:  NewRegistry("program"),
		Tests:     NewTestRegistry(),
	}

	c.Libraries.notify = c.fire
	c.Programs.notify = c.fire
	c.Tests.notify = c.fire

	return c
}

// OnRegister adds a hook called after every successful registration
func (c *Context) OnRegister(h Hook) {
	c.hooks = append(c.hooks, h)
}

func (c *Context) fire(ctx context.Context, registry string, a *Artifact) {
	for _, h := range c.hooks {
		h(ctx, registry, a)
	}
}
