package whispers

import (
	"fmt"
	"os"

	"github.com/adeptex/whispers/internal/config"
	"github.com/adeptex/whispers/internal/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// starterConfig is written by `config init`.
var starterConfig = config.FileConfig{
	Include: &config.Section{
		Files: config.DefaultIncludeFiles,
	},
	Exclude: &config.Section{
		Files: []string{
			`(.*/)?(tests?|fixtures|examples?)/`,
		},
		Keys: []string{
			`^foo`,
		},
		Values: []string{
			`^(true|false|yes|no|1|0)$`,
			`.*_(user|password|token|key|placeholder|name)$`,
			`^aws_(access_key_id|secret_access_key|session_token)$`,
			`^((cn?trl|alt|shift|del|ins|esc|tab|f[\d]+) ?[\+_\-\\/] ?)+[\w]+$`,
		},
	},
}

func newConfigCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}

	var file string
	show := &cobra.Command{
		Use:   "show [path]",
		Short: "Print the effective configuration for a scan root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			log, err := logging.New("error", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			o := &scanOptions{configPath: file}
			fc, err := o.fileConfig(cmd, root, log)
			if err != nil {
				return err
			}
			if _, err := config.Resolve(fc); err != nil {
				return err
			}
			b, err := yaml.Marshal(&fc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	show.Flags().StringVarP(&file, "config", "c", "", "config file to merge")

	var output string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter .whispers.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}
			b, err := yaml.Marshal(&starterConfig)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, b, 0644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", output)
			return nil
		},
	}
	initCmd.Flags().StringVar(&output, "output", ".whispers.yml", "output file path")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cfgCmd.AddCommand(show, initCmd)
	return cfgCmd
}
