package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/VadimTikh/telegram-poll-forwarder/internal/logutil"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/userconfig"
)

// call places a single alert call through the real provider, exercising the
// same trigger (and cooldown state) the pipeline uses.
func newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call",
		Short: "Place a test alert call",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			cfgMgr := userconfig.NewManager(filepath.Join(stateDir(), "config.json"), logger)
			cfg := cfgMgr.Load()
			if cfg.CallPhoneNumber == "" {
				return fmt.Errorf("no call phone number configured; set it via the panel or %s/config.json", stateDir())
			}

			if !newTrigger(cfgMgr, logger).Call() {
				return fmt.Errorf("call was not placed (see log for detail)")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "call placed to %s\n", cfg.CallPhoneNumber)
			return nil
		},
	}
}
