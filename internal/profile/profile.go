// Package profile builds the configuration for one build profile: the
// toolchain, the flag sets and the console message templates.
package profile

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"

	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/paths"
)

// Compiler preference lists, most preferred first
var (
	CCompilers     = []string{"clang", "gcc"}
	CXXCompilers   = []string{"clang++", "g++"}
	Linkers        = []string{"clang++", "g++"}
	Archivers      = []string{"ar"}
	Indexers       = []string{"ranlib"}
	SwiftCompilers = []string{"swiftc"}
)

// Options controls how a profile is assembled
type Options struct {
	// Modern appends language standard flags
	Modern bool
	// Paranoid appends strict warning flags
	Paranoid bool
	// Colorful enables color diagnostics when Interactive reports a terminal
	Colorful bool
	// Succinct selects single-line right-aligned action messages
	Succinct bool

	// Extra flags from configuration, appended after the profile's own
	CCFlags   []string
	LinkFlags []string

	// Which resolves tool names. Defaults to paths.Which.
	Which func(string) (string, bool)
	// Interactive reports whether stdout is a terminal. Defaults to isatty.
	Interactive func() bool
}

// DefaultOptions enables modern, paranoid, colorful and succinct
func DefaultOptions() Options {
	return Options{
		Modern:   true,
		Paranoid: true,
		Colorful: true,
		Succinct: true,
	}
}

// Toolchain holds the selected tool names
type Toolchain struct {
	CC     string
	CXX    string
	Link   string
	AR     string
	Ranlib string
	SwiftC string

	// Missing lists tools that were not found and fell back to their
	// preferred literal name
	Missing []string
}

// Flags is a set of additions to a profile
type Flags struct {
	CFlags     []string
	CXXFlags   []string
	CCFlags    []string
	CPPDefines []string
	CPPPath    []string
	LinkFlags  []string
	LibPath    []string
	SwiftFlags []string
}

// Profile is one named build configuration. Flag sets only grow, and stop
// accepting additions once the profile is frozen.
type Profile struct {
	Name string
	Kind Kind
	Toolchain

	// Succinct records the template style so clones keep it
	Succinct bool

	Flags
	Messages map[Action]string

	frozen bool
}

// New builds a profile of the given kind. name defaults to the kind. An
// unknown kind fails with ErrInvalidConfiguration and yields no profile.
func New(kind string, name string, opts Options) (*Profile, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = string(k)
	}

	which := opts.Which
	if which == nil {
		which = paths.Which
	}

	interactive := opts.Interactive
	if interactive == nil {
		interactive = StdoutIsTerminal
	}

	p := &Profile{
		Name:     name,
		Kind:     k,
		Succinct: opts.Succinct,
		Messages: messageTemplates(opts.Succinct),
	}

	p.Toolchain = probeToolchain(which)

	if opts.Modern {
		p.CFlags = append(p.CFlags, "-std=c99")
		p.CXXFlags = append(p.CXXFlags, "-std=c++11")
	}

	if opts.Paranoid {
		p.CCFlags = append(p.CCFlags, "-Wall", "-Wextra", "-pedantic")
	}

	if opts.Colorful && interactive() {
		p.CCFlags = append(p.CCFlags, colorFlags(p.CC, p.CXX)...)
	}

	s := settings[k]
	p.CPPDefines = append(p.CPPDefines, s.defines...)
	p.CCFlags = append(p.CCFlags, s.ccflags...)
	p.CCFlags = append(p.CCFlags, opts.CCFlags...)
	p.LinkFlags = append(p.LinkFlags, opts.LinkFlags...)

	return p, nil
}

func probeToolchain(which func(string) (string, bool)) Toolchain {
	var tc Toolchain

	pick := func(names []string) string {
		name, found := paths.First(which, names...)
		if !found {
			tc.Missing = append(tc.Missing, name)
		}

		return name
	}

	tc.CC = pick(CCompilers)
	tc.CXX = pick(CXXCompilers)
	tc.Link = pick(Linkers)
	tc.AR = pick(Archivers)
	tc.Ranlib = pick(Indexers)
	tc.SwiftC = pick(SwiftCompilers)

	return tc
}

// Family classifies a compiler name as "clang", "gcc" or ""
func Family(compiler string) string {
	switch {
	case strings.Contains(compiler, "clang"):
		return "clang"
	case strings.Contains(compiler, "gcc"), strings.Contains(compiler, "g++"):
		return "gcc"
	}

	return ""
}

func colorFlags(cc, cxx string) []string {
	switch {
	case Family(cc) == "clang" || Family(cxx) == "clang":
		return []string{"-fcolor-diagnostics"}
	case Family(cc) == "gcc" || Family(cxx) == "gcc":
		return []string{"-fdiagnostics-color=always"}
	}

	return nil
}

// StdoutIsTerminal reports whether stdout is an interactive terminal
func StdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Append adds flags to the profile. Include paths already present are
// skipped.
func (p *Profile) Append(f Flags) error {
	if p.frozen {
		return eris.Wrapf(codes.ErrProfileFrozen, "cannot change profile %s", p.Name)
	}

	p.CFlags = append(p.CFlags, f.CFlags...)
	p.CXXFlags = append(p.CXXFlags, f.CXXFlags...)
	p.CCFlags = append(p.CCFlags, f.CCFlags...)
	p.CPPDefines = append(p.CPPDefines, f.CPPDefines...)
	p.LinkFlags = append(p.LinkFlags, f.LinkFlags...)
	p.SwiftFlags = append(p.SwiftFlags, f.SwiftFlags...)
	p.CPPPath = appendUnique(p.CPPPath, f.CPPPath...)
	p.LibPath = appendUnique(p.LibPath, f.LibPath...)

	return nil
}

// Freeze stops the profile from accepting further additions
func (p *Profile) Freeze() {
	p.frozen = true
}

// Frozen reports whether Freeze was called
func (p *Profile) Frozen() bool {
	return p.frozen
}

// Clone returns an unfrozen deep copy whose changes do not leak back
func (p *Profile) Clone() *Profile {
	c := &Profile{
		Name:     p.Name,
		Kind:     p.Kind,
		Succinct: p.Succinct,
		Toolchain: Toolchain{
			CC:      p.CC,
			CXX:     p.CXX,
			Link:    p.Link,
			AR:      p.AR,
			Ranlib:  p.Ranlib,
			SwiftC:  p.SwiftC,
			Missing: copyStrings(p.Missing),
		},
		Flags: Flags{
			CFlags:     copyStrings(p.CFlags),
			CXXFlags:   copyStrings(p.CXXFlags),
			CCFlags:    copyStrings(p.CCFlags),
			CPPDefines: copyStrings(p.CPPDefines),
			CPPPath:    copyStrings(p.CPPPath),
			LinkFlags:  copyStrings(p.LinkFlags),
			LibPath:    copyStrings(p.LibPath),
			SwiftFlags: copyStrings(p.SwiftFlags),
		},
		Messages: make(map[Action]string, len(p.Messages)),
	}

	for k, v := range p.Messages {
		c.Messages[k] = v
	}

	return c
}

// Message renders the console line for an action on target
func (p *Profile) Message(action Action, target string) string {
	tmpl, ok := p.Messages[action]
	if !ok {
		tmpl = Template(action.Label(), p.Succinct)
	}

	return strings.ReplaceAll(tmpl, TargetPlaceholder, target)
}

// HasDefine reports whether a preprocessor define is set
func (p *Profile) HasDefine(name string) bool {
	for _, d := range p.CPPDefines {
		if d == name || strings.HasPrefix(d, name+"=") {
			return true
		}
	}

	return false
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if item == "" || contains(list, item) {
			continue
		}

		list = append(list, item)
	}

	return list
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}

	return append([]string(nil), s...)
}
