package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/VadimTikh/telegram-poll-forwarder/internal/sessionstore"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/userconfig"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and state paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := stateDir()
			cfgMgr := userconfig.NewManager(filepath.Join(dir, "config.json"), nil)
			cfg := cfgMgr.Load()

			body, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "state dir:    %s\n", dir)
			_, _ = fmt.Fprintf(out, "user config:  %s\n", filepath.Join(dir, "config.json"))
			_, _ = fmt.Fprintf(out, "session file: %s\n", filepath.Join(dir, sessionstore.FileName))
			_, _ = fmt.Fprintf(out, "panel:        %s:%d\n", viper.GetString("panel.bind"), viper.GetInt("panel.port"))
			_, _ = fmt.Fprintf(out, "%s\n", body)
			return nil
		},
	}
}
