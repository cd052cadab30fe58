package whispers

import (
	"fmt"
	"runtime/debug"

	semver "github.com/blang/semver/v4"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X".
var version = "2.4.0"

// buildVersion normalises v to a semantic version, falling back to the
// module version recorded in the binary and finally to 0.0.0.
func buildVersion(v string) semver.Version {
	if ver, err := semver.ParseTolerant(v); err == nil {
		return ver
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if ver, err := semver.ParseTolerant(info.Main.Version); err == nil {
			return ver
		}
	}
	return semver.MustParse("0.0.0")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the whispers version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "whispers v%s\n", buildVersion(version))
		},
	}
}
