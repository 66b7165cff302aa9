package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/utils"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile [key=value...]",
		Short: "Show the resolved build profiles",
		Long: `Print the toolchain, flags and action messages of every selected profile
without building anything.`,
		RunE:         runProfile,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
	}

	addBuildFlags(cmd)
	return cmd
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx, cfg, err := setup(cmd, args)
	if err != nil {
		return err
	}

	for i, mode := range cfg.Modes {
		p, err := newProfile(ctx, cfg, mode)
		if err != nil {
			return err
		}

		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}

		printProfile(cmd.OutOrStdout(), p)
	}

	return nil
}

func printProfile(w io.Writer, p *profile.Profile) {
	row := func(label, value string) {
		fmt.Fprintf(w, "  %-12s %s\n", label, value)
	}

	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.Kind)

	row("CC", p.CC)
	row("CXX", p.CXX)
	row("LINK", p.Link)
	row("AR", p.AR)
	row("RANLIB", p.Ranlib)
	row("SWIFTC", p.SwiftC)
	if len(p.Missing) > 0 {
		row("missing", utils.QuoteArgs(p.Missing))
	}

	row("CFLAGS", utils.QuoteArgs(p.CFlags))
	row("CXXFLAGS", utils.QuoteArgs(p.CXXFlags))
	row("CCFLAGS", utils.QuoteArgs(p.CCFlags))
	row("CPPDEFINES", utils.QuoteArgs(p.CPPDefines))
	row("assertions", onOff(!p.HasDefine("NDEBUG")))
	row("CPPPATH", utils.QuoteArgs(p.CPPPath))
	row("LINKFLAGS", utils.QuoteArgs(p.LinkFlags))
	row("SWIFTFLAGS", utils.QuoteArgs(p.SwiftFlags))

	fmt.Fprintln(w, "  messages:")
	for _, action := range profile.Actions() {
		fmt.Fprintf(w, "    %-14s %q\n", action, p.Messages[action])
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}

	return "off"
}
