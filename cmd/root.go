package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/logging"
	"github.com/Norgate-AV/buildenv/internal/version"
)

var rootCmd = NewRootCmd()

// NewRootCmd assembles the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "buildenv",
		Short: "Build environment for C, C++ and Swift projects",
		Long: `Builds every library under lib/, the source tree under src/ and the
tests under test/ for one or more build profiles (debug, beta, release).

Options can also be given as key=value arguments, e.g.

  buildenv mode=debug,release succinct=0`,
		RunE:          runBuild,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
	}

	root.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	root.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	root.PersistentFlags().StringP("directory", "C", ".", "Project directory")
	addBuildFlags(root)

	root.AddCommand(newBuildCmd())
	root.AddCommand(newWhichCmd())
	root.AddCommand(newProfileCmd())
	root.AddCommand(newManifestCmd())

	return root
}

// addBuildFlags adds the flags shared by every command that loads a configuration
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("mode", "m", "", "Build profiles, comma separated (debug, beta, release)")
	cmd.Flags().BoolP("dry-run", "n", false, "Print build actions without running them")
	cmd.Flags().BoolP("run-tests", "t", false, "Run linked test programs after building")
	cmd.Flags().String("src-dir", "", "Source directory")
	cmd.Flags().String("lib-dir", "", "Library directory")
	cmd.Flags().String("test-dir", "", "Test directory")
	cmd.Flags().String("build-dir", "", "Build output directory")
	cmd.Flags().String("ccflags", "", "Extra compiler flags")
	cmd.Flags().String("linkflags", "", "Extra linker flags")
	cmd.Flags().Bool("modern", true, "Use modern language standards")
	cmd.Flags().Bool("paranoid", true, "Enable strict warnings")
	cmd.Flags().Bool("colorful", true, "Color compiler diagnostics on a terminal")
	cmd.Flags().Bool("succinct", true, "Print one short line per build action")
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())

	code := codes.ExitCode(err)
	if codes.IsSuccess(code) {
		return
	}

	logger := logging.New(os.Stderr, false)
	logger.Error().Err(err).Msg(codes.GetErrorMessage(code))

	os.Exit(code)
}
