package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/config"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration after file loading, environment expansion, and
defaulting. Useful for checking what a session would actually be created
with.`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(c)
			if err != nil {
				return handleError(c, err)
			}

			if path, err := config.FindConfigFile(); err == nil {
				fmt.Printf("# loaded from %s\n", path)
			} else {
				fmt.Println("# no config file found, built-in defaults")
			}

			if cli.GetOptions(c).JSONOutput {
				out, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return handleError(c, err)
				}
				fmt.Println(string(out))
				return nil
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return handleError(c, err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
