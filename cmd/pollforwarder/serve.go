package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/VadimTikh/telegram-poll-forwarder/internal/bot"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/call"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/fsstore"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/logutil"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/monitor"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/panel"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/session"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/sessionstore"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/telegram"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/userconfig"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the forwarder with its web control panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			password := viper.GetString("panel.password")
			if password == "" {
				return fmt.Errorf("panel.password is required (env %s_PANEL_PASSWORD)", envPrefix)
			}
			apiID := viper.GetInt("telegram.api_id")
			apiHash := viper.GetString("telegram.api_hash")
			if apiID == 0 || apiHash == "" {
				return fmt.Errorf("telegram.api_id and telegram.api_hash are required")
			}

			dir := stateDir()
			if err := fsstore.EnsureDir(dir, 0o700); err != nil {
				return fmt.Errorf("prepare state dir: %w", err)
			}

			sessions := sessionstore.New(filepath.Join(dir, sessionstore.FileName), logger)
			cfgMgr := userconfig.NewManager(filepath.Join(dir, "config.json"), logger)
			cfgMgr.Load()

			trigger := newTrigger(cfgMgr, logger)

			auth := session.NewAuthenticator(func(ctx context.Context) (session.Conn, error) {
				conn, err := telegram.Dial(ctx, telegram.Config{
					APIID:   apiID,
					APIHash: apiHash,
					Storage: sessions,
					Logger:  logger,
				})
				if err != nil {
					return nil, err
				}
				return conn, nil
			}, logger)

			mon := monitor.New(monitor.Options{Caller: trigger, Logger: logger})
			ctl := bot.NewController(bot.Options{
				Authenticator: auth,
				Runner:        mon,
				Config:        cfgMgr,
				Logger:        logger,
			})
			srv := panel.NewServer(panel.Options{
				Password:   password,
				Controller: ctl,
				Config:     cfgMgr,
				LogPath:    viper.GetString("logging.file.path"),
				Logger:     logger,
			})

			addr := net.JoinHostPort(viper.GetString("panel.bind"), strconv.Itoa(viper.GetInt("panel.port")))
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("panel_listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("panel server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting_down")
			if err := ctl.Stop(); err != nil {
				logger.Warn("shutdown_stop_error", "error", err.Error())
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown_http_error", "error", err.Error())
			}
			return nil
		},
	}

	cmd.Flags().String("bind", "", "Panel bind address.")
	cmd.Flags().Int("port", 0, "Panel port.")
	_ = viper.BindPFlag("panel.bind", cmd.Flags().Lookup("bind"))
	_ = viper.BindPFlag("panel.port", cmd.Flags().Lookup("port"))

	return cmd
}

func newTrigger(cfgMgr *userconfig.Manager, logger *slog.Logger) *call.Trigger {
	dialer := call.NewTwilioDialer(call.TwilioConfig{
		AccountSID: viper.GetString("twilio.account_sid"),
		AuthToken:  viper.GetString("twilio.auth_token"),
		Timeout:    viper.GetDuration("twilio.request_timeout"),
	})
	return call.New(call.Options{
		Dialer: dialer,
		From:   viper.GetString("twilio.from_number"),
		Settings: func() (string, time.Duration) {
			cfg := cfgMgr.Get()
			return cfg.CallPhoneNumber, cfg.Cooldown()
		},
		Logger: logger,
	})
}
