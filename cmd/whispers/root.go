package whispers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// errFailThreshold is returned by scan when findings reach --fail-on.
type errFailThreshold struct{ code int }

func (e errFailThreshold) Error() string {
	return fmt.Sprintf("findings at or above the fail-on severity (exit %d)", e.code)
}

// NewRootCmd builds the whispers command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "whispers",
		Short:         "Identify hardcoded secrets in static structured text",
		Long:          "Whispers parses configuration files, scripts and markup into key/value pairs and reports the ones matching secret detection rules.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate("whispers {{.Version}}\n")

	scan := newScanCmd()
	root.AddCommand(scan, newRulesCmd(), newConfigCmd(), newIgnoreCmd(), newVersionCmd())
	bindViper(scan)
	return root
}

// Execute runs the whispers CLI. It should be called by the main package.
func Execute() {
	err := NewRootCmd(os.Stdout, os.Stderr).Execute()
	if err == nil {
		return
	}
	var fail errFailThreshold
	if errors.As(err, &fail) {
		os.Exit(fail.code)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(2)
}

// bindViper lets WHISPERS_* environment variables supply any flag the user
// did not set on the command line.
func bindViper(commands ...*cobra.Command) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("WHISPERS")
	v.AutomaticEnv()

	for _, cmd := range commands {
		prev := cmd.PreRunE
		cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			var errs []error
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				if f.Changed || !v.IsSet(f.Name) {
					return
				}
				if val := fmt.Sprintf("%v", v.Get(f.Name)); val != "" && val != f.DefValue {
					if err := cmd.Flags().Set(f.Name, val); err != nil {
						errs = append(errs, fmt.Errorf("WHISPERS_%s: %w", strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
					}
				}
			})
			if err := errors.Join(errs...); err != nil {
				return err
			}
			if prev != nil {
				return prev(cmd, args)
			}
			return nil
		}
	}
}
