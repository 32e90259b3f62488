package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitechat/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sitechat configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure sitechat and generates a .sitechat.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
