package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/buildenv/internal/builder"
	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/compiler"
	"github.com/Norgate-AV/buildenv/internal/config"
	"github.com/Norgate-AV/buildenv/internal/dispatch"
	"github.com/Norgate-AV/buildenv/internal/logging"
	"github.com/Norgate-AV/buildenv/internal/manifest"
	"github.com/Norgate-AV/buildenv/internal/paths"
	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/registry"
)

// Replaced in tests
var (
	lookPath    = paths.Which
	interactive = profile.StdoutIsTerminal
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [key=value...]",
		Short: "Build the project",
		Long: `Build libraries, sources and tests for every selected profile.
This is the default command.`,
		RunE:         runBuild,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
	}

	addBuildFlags(cmd)
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cfg, err := setup(cmd, args)
	if err != nil {
		return err
	}

	m, err := manifest.Open(cfg.BuildDir)
	if err != nil {
		return err
	}
	defer m.Close()

	logging.Log(ctx).Debug().Str("path", m.Path()).Msg("Opened manifest")

	s := &session{
		cfg:      cfg,
		out:      cmd.OutOrStdout(),
		runner:   compiler.NewRunner(cmd.OutOrStdout()),
		manifest: m,
	}
	s.runner.DryRun = cfg.DryRun

	for _, mode := range cfg.Modes {
		if err := s.build(ctx, mode); err != nil {
			return err
		}
	}

	return nil
}

// setup loads the configuration and attaches a logger to the command context
func setup(cmd *cobra.Command, args []string) (context.Context, *config.Config, error) {
	viper.Reset()

	dir, _ := cmd.Flags().GetString("directory")

	cfg, err := config.NewLoader().LoadForBuild(cmd, dir, args)
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Verbose)
	ctx = logging.WithLogger(ctx, &logger)

	logging.Log(ctx).Debug().Str("path", cfg.ProjectDir).Msgf("Building %v", cfg.Modes)
	return ctx, cfg, nil
}

func profileOptions(cfg *config.Config) profile.Options {
	return profile.Options{
		Modern:      cfg.Modern,
		Paranoid:    cfg.Paranoid,
		Colorful:    cfg.Colorful,
		Succinct:    cfg.Succinct,
		CCFlags:     cfg.CCFlags,
		LinkFlags:   cfg.LinkFlags,
		Which:       lookPath,
		Interactive: interactive,
	}
}

// newProfile builds the profile for mode and reports tools that were not found
func newProfile(ctx context.Context, cfg *config.Config, mode string) (*profile.Profile, error) {
	p, err := profile.New(mode, "", profileOptions(cfg))
	if err != nil {
		return nil, err
	}

	for _, tool := range p.Missing {
		event := logging.Log(ctx).Warn()
		if tool == profile.SwiftCompilers[0] {
			// only needed for Swift sources
			event = logging.Log(ctx).Debug()
		}

		event.Str("profile", p.Name).
			Err(eris.Wrapf(codes.ErrToolNotFound, "%s", tool)).
			Msgf("%s not found, using the literal name", tool)
	}

	return p, nil
}

type session struct {
	cfg      *config.Config
	out      io.Writer
	runner   *compiler.Runner
	manifest *manifest.Manifest
}

// build runs one profile's pass: libraries with cloned profiles, then the
// source and test trees with the shared profile, then the plan and tests.
func (s *session) build(ctx context.Context, mode string) error {
	p, err := newProfile(ctx, s.cfg, mode)
	if err != nil {
		return err
	}

	// descriptors extend p, so fingerprint the configured profile
	fingerprint := manifest.Fingerprint(p)

	if prev, err := s.manifest.Get(p.Name); err == nil && prev != nil && prev.Fingerprint != fingerprint {
		logging.Log(ctx).Info().Str("profile", p.Name).Msg("Toolchain or flags changed since the last build")
	}

	bc := registry.NewContext()
	bc.OnRegister(func(ctx context.Context, reg string, a *registry.Artifact) {
		logging.Log(ctx).Debug().Str("profile", p.Name).Msgf("Registered %s %s: %s", reg, a.Name, a.Path)
	})

	plan := &builder.Plan{}
	err = s.dispatch(ctx, p, dispatch.New(bc, plan, s.cfg.BuildDir, s.cfg.ProjectDir))
	if err == nil {
		summarize(ctx, p, bc)
		err = s.runner.Execute(ctx, p, plan)
	}

	if err == nil {
		err = s.tests(ctx, p, bc.Tests.RunAll())
	}

	entry := manifest.NewEntry(p, bc, s.cfg.DryRun, err == nil)
	entry.Fingerprint = fingerprint

	if storeErr := s.manifest.Store(entry); storeErr != nil {
		logging.Log(ctx).Warn().Str("profile", p.Name).Err(storeErr).Msg("Could not update the manifest")
	}

	return err
}

func (s *session) dispatch(ctx context.Context, p *profile.Profile, d *dispatch.Dispatcher) error {
	if isDir(s.cfg.LibDir) {
		if err := d.ProcessAll(ctx, p, s.cfg.LibDir, dispatch.KindLibrary); err != nil {
			return err
		}
	} else {
		logging.Log(ctx).Debug().Str("profile", p.Name).Str("path", s.cfg.LibDir).Msg("No library directory")
	}

	if err := d.ProcessTree(ctx, p, s.cfg.SrcDir, dispatch.KindSource); err != nil {
		return err
	}

	if isDir(s.cfg.TestDir) {
		return d.ProcessTree(ctx, p, s.cfg.TestDir, dispatch.KindTest)
	}

	return nil
}

// summarize logs what the descriptors declared and warns about test suites
// that were compiled but never linked
func summarize(ctx context.Context, p *profile.Profile, bc *registry.Context) {
	logging.Log(ctx).Debug().Str("profile", p.Name).
		Strs("libraries", bc.Libraries.Names()).
		Strs("programs", bc.Programs.Names()).
		Msgf("Declared %d libraries, %d programs", bc.Libraries.Len(), bc.Programs.Len())

	for _, name := range bc.Tests.Names() {
		suite, ok := bc.Tests.Suite(name)
		if !ok || suite.Linked() {
			continue
		}

		logging.Log(ctx).Warn().Str("profile", p.Name).
			Msgf("Test suite %q has %d objects but no test_program", name, len(suite.Objects))
	}
}

// tests prints the run command of every linked suite, or runs them
func (s *session) tests(ctx context.Context, p *profile.Profile, cmds []registry.RunCommand) error {
	if s.cfg.RunTests {
		return s.runner.RunTests(ctx, p, cmds)
	}

	for _, c := range cmds {
		fmt.Fprintln(s.out, c.String())
	}

	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
