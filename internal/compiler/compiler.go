// Package compiler executes planned build actions, printing one console line
// per action.
package compiler

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/Norgate-AV/buildenv/internal/builder"
	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/logging"
	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/registry"
	"github.com/Norgate-AV/buildenv/internal/utils"
)

// Commander interface for testing
type Commander interface {
	Run() error
}

// Runner executes plans and test commands
type Runner struct {
	execCommand func(ctx context.Context, name string, args ...string) Commander

	// Out receives the action lines
	Out io.Writer

	// DryRun prints action lines without running anything
	DryRun bool
}

// NewRunner creates a runner printing action lines to out
func NewRunner(out io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}

	return &Runner{
		Out: out,
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd
		},
	}
}

// Execute freezes the profile and runs every action of the plan in order,
// stopping at the first failure.
func (r *Runner) Execute(ctx context.Context, p *profile.Profile, plan *builder.Plan) error {
	p.Freeze()

	for _, action := range plan.Actions {
		fmt.Fprintln(r.Out, p.Message(action.Kind, action.Target))
		logging.Log(ctx).Debug().Str("profile", p.Name).Msg(action.String())

		if r.DryRun {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(action.Target), 0o755); err != nil {
			return eris.Wrapf(err, "failed to create output directory for %s", action.Target)
		}

		if err := r.ExecuteCommand(ctx, action.Argv); err != nil {
			return eris.Wrapf(err, "%s %s", action.Kind.Label(), action.Target)
		}
	}

	return nil
}

// RunTests runs every command, continuing past failures, and reports the
// failed suites together.
func (r *Runner) RunTests(ctx context.Context, p *profile.Profile, cmds []registry.RunCommand) error {
	var failed []string

	for _, cmd := range cmds {
		fmt.Fprintln(r.Out, p.Message(profile.ActionTest, cmd.Program))
		logging.Log(ctx).Debug().Str("profile", p.Name).Msg(cmd.String())

		if r.DryRun {
			continue
		}

		if err := r.ExecuteCommand(ctx, cmd.Argv()); err != nil {
			logging.Log(ctx).Error().Str("profile", p.Name).Err(err).Msgf("test suite %s failed", cmd.Suite)
			failed = append(failed, cmd.Suite)
		}
	}

	if len(failed) > 0 {
		return eris.Wrapf(codes.ErrActionFailed, "test suites failed: %v", failed)
	}

	return nil
}

// ExecuteCommand runs one argv
func (r *Runner) ExecuteCommand(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return eris.Wrap(codes.ErrActionFailed, "empty command")
	}

	c := r.execCommand(ctx, argv[0], argv[1:]...)

	err := c.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			return eris.Wrapf(codes.ErrActionFailed, "%s exited with code %d", argv[0], code)
		}

		// typically the tool is not installed
		return eris.Wrapf(codes.ErrActionFailed, "failed to run %s: %v", utils.QuoteArgs(argv), err)
	}

	return nil
}
