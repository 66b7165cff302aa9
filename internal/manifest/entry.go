package manifest

import (
	"os"
	"time"

	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/registry"
)

// Entry summarises one profile's build
type Entry struct {
	// Profile is the profile name and the entry's key
	Profile string `json:"profile"`

	Kind string `json:"kind"`

	// Fingerprint covers the configured toolchain and flags, before any
	// descriptor extended them
	Fingerprint string `json:"fingerprint"`

	Timestamp time.Time `json:"timestamp"`

	Libraries []Record `json:"libraries"`
	Programs  []Record `json:"programs"`
	Tests     []Record `json:"tests"`

	// DryRun entries describe planned rather than built artifacts
	DryRun  bool `json:"dry_run"`
	Success bool `json:"success"`
}

// Record is one registered artifact
type Record struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Path string `json:"path"`

	// Digest is the sha256 of the file when it existed at record time
	Digest string `json:"digest,omitempty"`
}

// NewEntry summarises the registries of bc for p
func NewEntry(p *profile.Profile, bc *registry.Context, dryRun, success bool) *Entry {
	e := &Entry{
		Profile:     p.Name,
		Kind:        string(p.Kind),
		Fingerprint: Fingerprint(p),
		Timestamp:   time.Now(),
		Libraries:   records(bc.Libraries.All()),
		Programs:    records(bc.Programs.All()),
		Tests:       make([]Record, 0),
		DryRun:      dryRun,
		Success:     success,
	}

	for _, cmd := range bc.Tests.RunAll() {
		e.Tests = append(e.Tests, record(&registry.Artifact{
			Name: cmd.Suite,
			Kind: registry.KindTestProgram,
			Path: cmd.Program,
		}))
	}

	return e
}

func records(artifacts []*registry.Artifact) []Record {
	result := make([]Record, 0, len(artifacts))
	for _, a := range artifacts {
		result = append(result, record(a))
	}

	return result
}

func record(a *registry.Artifact) Record {
	r := Record{Name: a.Name, Kind: string(a.Kind), Path: a.Path}

	if digest, err := HashFile(a.Path); err == nil {
		r.Digest = digest
	}

	return r
}

// Stale reports whether p no longer matches the recorded toolchain and flags
func (e *Entry) Stale(p *profile.Profile) bool {
	return e.Fingerprint != Fingerprint(p)
}

// Missing lists recorded artifact paths that no longer exist
func (e *Entry) Missing() []string {
	var missing []string

	for _, group := range [][]Record{e.Libraries, e.Programs, e.Tests} {
		for _, r := range group {
			if _, err := os.Stat(r.Path); os.IsNotExist(err) {
				missing = append(missing, r.Path)
			}
		}
	}

	return missing
}

// Count returns the number of recorded artifacts
func (e *Entry) Count() int {
	return len(e.Libraries) + len(e.Programs) + len(e.Tests)
}
