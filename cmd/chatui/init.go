package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/chatui/internal/config"
	"github.com/vango-dev/chatui/internal/errors"
)

func initCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default chatui.json",
		Long: `Write chatui.json with the default settings into the config directory.

Examples:
  chatui init
  chatui init --config ./deploy --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Exists(flags.configDir) && !force {
				return errors.New("E120").
					WithDetail("chatui.json already exists in " + flags.configDir).
					WithSuggestion("Pass --force to overwrite it")
			}
			path := filepath.Join(flags.configDir, config.ConfigFileName)
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing chatui.json")
	return cmd
}
