package cmd

import (
	"funcscan/internal/version"

	"github.com/spf13/cobra"
)

// Version information set via ldflags, e.g. -X funcscan/cmd.Version=v1.0.0.
//
//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	Version   string
	Commit    string
	BuildTime string
)

func newVersionCmd() *cobra.Command {
	var (
		short  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// Version output never depends on configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				syncLegacyVersionVars()
				return version.GetVersion().WriteJSON(cmd.OutOrStdout())
			}
			return runVersion(cmd, short)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Show only version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Show version information as JSON")
	return cmd
}

func runVersion(cmd *cobra.Command, short bool) error {
	syncLegacyVersionVars()
	return version.GetVersion().Write(cmd.OutOrStdout(), short)
}

// syncLegacyVersionVars copies ldflags-injected cmd variables into the
// version package when any of them is set.
func syncLegacyVersionVars() {
	if Version != "" || Commit != "" || BuildTime != "" {
		version.SetBuildVars(Version, Commit, BuildTime)
	}
}
