package profile

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Norgate-AV/buildenv/internal/codes"
)

// Kind selects the optimisation, debug-symbol and define set of a profile
type Kind string

const (
	Debug   Kind = "debug"
	Beta    Kind = "beta"
	Release Kind = "release"
)

// Kinds lists every supported profile kind
var Kinds = []Kind{Debug, Beta, Release}

// ParseKind validates a profile kind name, case-insensitively
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}

	return "", eris.Wrapf(codes.ErrInvalidConfiguration, "unknown profile kind %q (want debug, beta or release)", s)
}

type kindSettings struct {
	defines []string
	ccflags []string
}

var settings = map[Kind]kindSettings{
	Debug: {
		defines: []string{"DEBUG"},
		ccflags: []string{"-O0", "-g"},
	},
	Beta: {
		defines: []string{"DEBUG"},
		ccflags: []string{"-O3", "-g"},
	},
	Release: {
		defines: []string{"NDEBUG", "RELEASE"},
		ccflags: []string{"-O3"},
	},
}
