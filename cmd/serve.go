package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadhook/internal/config"
	"github.com/sells-group/leadhook/internal/notify"
	"github.com/sells-group/leadhook/internal/resilience"
	"github.com/sells-group/leadhook/internal/webhook"
	"github.com/sells-group/leadhook/pkg/pcm"
	"github.com/sells-group/leadhook/pkg/twilio"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		srv := &http.Server{
			Handler:           webhook.New(cfg, newDispatcher(cfg)).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		zap.L().Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
			zap.Bool("twilio_configured", cfg.Twilio.Enabled()),
			zap.Bool("crm_configured", cfg.PCM.Enabled()),
		)
		return runServer(ctx, srv, ln)
	},
}

// newDispatcher builds the notification clients that are configured and
// leaves the rest nil.
func newDispatcher(c *config.Config) *notify.Dispatcher {
	timeout := c.HTTP.Timeout()

	var sms twilio.Client
	if c.Twilio.Enabled() {
		sms = twilio.NewClient(c.Twilio.AccountSID, c.Twilio.AuthToken,
			twilio.WithBaseURL(c.Twilio.BaseURL),
			twilio.WithTimeout(timeout),
			twilio.WithRateLimit(c.Twilio.RatePerSec),
		)
	} else if c.Twilio.Partial() {
		zap.L().Warn("twilio partially configured, sms alerts disabled",
			zap.Bool("account_sid", c.Twilio.AccountSID != ""),
			zap.Bool("auth_token", c.Twilio.AuthToken != ""),
			zap.Bool("from_number", c.Twilio.FromNumber != ""),
		)
	} else {
		zap.L().Warn("twilio not configured, sms alerts disabled")
	}

	var (
		crm  pcm.Client
		opts []notify.Option
	)
	if c.PCM.Enabled() {
		crm = pcm.NewClient(c.PCM.APIKey,
			pcm.WithBaseURL(c.PCM.BaseURL),
			pcm.WithTimeout(timeout),
		)
		opts = append(opts, notify.WithBreaker(
			resilience.NewBreaker("pcm", c.PCM.BreakerFailures, c.PCM.BreakerCooldown()),
		))
	}

	return notify.NewDispatcher(notify.Settings{
		FromNumber:   c.Twilio.FromNumber,
		OwnerNumber:  c.Twilio.NotifyNumber,
		BusinessName: c.Business.Name,
	}, sms, crm, opts...)
}

// runServer serves on ln until ctx is cancelled, then closes the server
// immediately. In-flight requests are not drained.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server serve")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		return srv.Close()
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
