package cmd

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/buildenv/internal/codes"
)

func newWhichCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "which NAME...",
		Short:        "Locate programs on the search path",
		Long:         `Resolve each name the way buildenv resolves compilers, honouring PATH and PATHEXT.`,
		RunE:         runWhich,
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
	}
}

func runWhich(cmd *cobra.Command, args []string) error {
	var missing []string

	for _, name := range args {
		path, ok := lookPath(name)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: not found\n", name)
			missing = append(missing, name)
			continue
		}

		fmt.Fprintln(cmd.OutOrStdout(), path)
	}

	if len(missing) > 0 {
		return eris.Wrapf(codes.ErrToolNotFound, "%v", missing)
	}

	return nil
}
