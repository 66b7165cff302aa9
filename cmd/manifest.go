package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/buildenv/internal/config"
	"github.com/Norgate-AV/buildenv/internal/logging"
	"github.com/Norgate-AV/buildenv/internal/manifest"
	"github.com/Norgate-AV/buildenv/internal/profile"
)

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest [key=value...]",
		Short: "List the artifacts recorded by previous builds",
		Long: `List what the last build of each profile produced, and whether the
profile has changed since.`,
		RunE:         runManifest,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
	}

	addBuildFlags(cmd)
	cmd.Flags().Bool("clear", false, "Forget every recorded build")
	cmd.Flags().StringSlice("forget", nil, "Forget the recorded builds of these profiles")
	return cmd
}

func runManifest(cmd *cobra.Command, args []string) error {
	ctx, cfg, err := setup(cmd, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !isDir(cfg.BuildDir) {
		fmt.Fprintln(out, "No builds recorded")
		return nil
	}

	m, err := manifest.Open(cfg.BuildDir)
	if err != nil {
		return err
	}
	defer m.Close()

	logging.Log(ctx).Debug().Str("path", m.Path()).Msg("Opened manifest")

	if reset, _ := cmd.Flags().GetBool("clear"); reset {
		count, err := m.Len()
		if err != nil {
			return err
		}

		if err := m.Clear(); err != nil {
			return err
		}

		fmt.Fprintf(out, "Forgot %d recorded builds\n", count)
		return nil
	}

	if names, _ := cmd.Flags().GetStringSlice("forget"); len(names) > 0 {
		return forget(out, m, names)
	}

	entries, err := m.List()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No builds recorded")
		return nil
	}

	for _, e := range entries {
		printEntry(out, e, stale(cfg, e))
	}

	return nil
}

func forget(w io.Writer, m *manifest.Manifest, names []string) error {
	for _, name := range names {
		e, err := m.Get(name)
		if err != nil {
			return err
		}

		if e == nil {
			fmt.Fprintf(w, "%s: no build recorded\n", name)
			continue
		}

		if err := m.Delete(name); err != nil {
			return err
		}

		fmt.Fprintf(w, "%s: forgotten\n", name)
	}

	return nil
}

// stale compares an entry against the profile the current configuration builds
func stale(cfg *config.Config, e *manifest.Entry) bool {
	p, err := profile.New(e.Kind, e.Profile, profileOptions(cfg))
	if err != nil {
		return true
	}

	return e.Stale(p)
}

func printEntry(w io.Writer, e *manifest.Entry, changed bool) {
	status := "ok"
	switch {
	case !e.Success:
		status = "failed"
	case e.DryRun:
		status = "dry run"
	}

	fmt.Fprintf(w, "%s  %s  %s  %d artifacts", e.Profile, e.Timestamp.Format(time.DateTime), status, e.Count())
	if changed {
		fmt.Fprint(w, "  (profile changed)")
	}
	fmt.Fprintln(w)

	for _, group := range []struct {
		label   string
		records []manifest.Record
	}{
		{"library", e.Libraries},
		{"program", e.Programs},
		{"test", e.Tests},
	} {
		for _, r := range group.records {
			fmt.Fprintf(w, "  %-8s %-16s %s\n", group.label, r.Name, r.Path)
		}
	}

	for _, path := range e.Missing() {
		fmt.Fprintf(w, "  missing  %s\n", path)
	}
}
