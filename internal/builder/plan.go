package builder

import (
	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/utils"
)

// Action is one build step: a command producing Target from Sources
type Action struct {
	Kind    profile.Action
	Target  string
	Sources []string
	Argv    []string
}

// String renders the action's command line
func (a Action) String() string {
	return utils.QuoteArgs(a.Argv)
}

// Plan is the ordered list of actions declared during a build pass
type Plan struct {
	Actions []Action
}

// Add appends an action
func (p *Plan) Add(a Action) {
	p.Actions = append(p.Actions, a)
}

// Len returns the number of planned actions
func (p *Plan) Len() int {
	return len(p.Actions)
}
