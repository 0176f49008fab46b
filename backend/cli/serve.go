package cli

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"cwatch-dashboard/backend/config"
	"cwatch-dashboard/backend/handlers"
	"cwatch-dashboard/backend/services"
	"cwatch-dashboard/backend/system"
)

// dashboard bundles the aggregator with the client it polls and the
// optional geo database it enriches with.
type dashboard struct {
	client *services.Client
	agg    *services.Aggregator
	geo    *services.GeoIPService
}

func newDashboard(cfg config.Config, clock system.Clock) (*dashboard, error) {
	loc, err := cfg.Chart.Location()
	if err != nil {
		return nil, err
	}

	d := &dashboard{client: services.NewClient(cfg.API.BaseURL, cfg.API.Timeout)}
	opts := services.AggregatorOptions{
		Interval: cfg.Poll.Interval,
		Location: loc,
		Clock:    clock,
	}
	if cfg.GeoIP.Database != "" {
		geo, err := services.OpenGeoIP(cfg.GeoIP.Database)
		if err != nil {
			system.Warn("GeoIP disabled: %v", err)
		} else {
			d.geo = geo
			opts.Enricher = geo
		}
	}
	d.agg = services.NewAggregator(d.client, opts)
	return d, nil
}

func (d *dashboard) Close() {
	d.agg.Stop()
	if d.geo != nil {
		if err := d.geo.Close(); err != nil {
			system.Warn("Failed to close GeoIP database: %v", err)
		}
	}
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard gateway",
		Long: `Starts the poll loop and an HTTP gateway serving the dashboard.

Endpoints:
  GET    /                       Web dashboard
  GET    /api/view/state         Current view-state
  GET    /api/view/stream        Server-Sent Events, one per commit
  POST   /api/view/refresh       Refresh now
  POST   /api/view/block/:ip     Block an IP
  POST   /api/view/unblock/:ip   Unblock an IP
  DELETE /api/view/ip/:ip        Mark an IP safe
  GET    /metrics                Prometheus metrics`,
		Example: `  cwatch-dashboard serve
  cwatch-dashboard serve --addr :9090 --api-base http://cwatch:5000/api/dashboard
  CWATCH_POLL_INTERVAL=10s cwatch-dashboard serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	initLogging(cfg, true)
	defer system.Close()

	system.Info("CWatch dashboard gateway starting (api: %s, interval: %s)", cfg.API.BaseURL, cfg.Poll.Interval)

	db, err := services.OpenDatabase(cfg.Storage.Database)
	if err != nil {
		system.Error("Failed to open database: %v", err)
		return err
	}

	clock := system.NewRealClock()
	d, err := newDashboard(cfg, clock)
	if err != nil {
		return err
	}
	defer d.Close()

	events := services.NewEventLog(clock)
	events.Attach(d.agg)

	history := services.NewRefreshHistory(db, clock, cfg.Storage.HistoryDays)
	history.Attach(d.agg)
	history.Start()
	defer history.Stop()

	metrics := services.NewMetrics()
	metrics.Attach(d.agg)

	webhook := services.NewWebhookService(clock)
	if cfg.Alerts.DiscordWebhookURL != "" {
		webhook.SetWebhookURL(cfg.Alerts.DiscordWebhookURL)
		system.Info("Discord webhook configured")
	}
	monitor := services.NewStaleMonitor(webhook, clock, cfg.Alerts.StaleAlertAfter)
	monitor.Attach(d.agg)
	monitor.Start()
	defer monitor.Stop()

	if cfg.Alerts.DailyReport && webhook.IsEnabled() {
		loc, _ := cfg.Chart.Location()
		reporter := services.NewDailyReporter(history, d.agg, webhook, clock, loc)
		reporter.Start()
		defer reporter.Stop()
	}

	if cfg.Redis.Addr != "" {
		mirror, err := services.NewRedisMirror(ctx, services.RedisMirrorConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      3 * cfg.Poll.Interval,
		})
		if err != nil {
			system.Warn("Redis mirror disabled: %v", err)
		} else {
			mirror.Attach(d.agg)
			defer mirror.Close()
		}
	}

	h := handlers.NewHandler(d.agg, d.client, services.NewSettingsService(db), history, events, clock)
	app := handlers.NewApp(h, metrics, os.Stdout)

	if err := d.agg.Start(ctx); err != nil {
		return err
	}
	events.Add(services.EventInfo, "Dashboard gateway started on "+runtime.GOOS)

	return listenUntilDone(ctx, app, cfg.Server.Addr, d.agg)
}

// listenUntilDone serves app until ctx ends or the listener fails. Either
// way agg is stopped before it returns, so no refresh is in flight while
// the caller's deferred sinks close.
func listenUntilDone(ctx context.Context, app *fiber.App, addr string, agg *services.Aggregator) error {
	errCh := make(chan error, 1)
	go func() {
		system.Info("Gateway listening on %s", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		system.Error("Gateway stopped: %v", err)
		agg.Stop()
		return err
	case <-ctx.Done():
		system.Info("Gracefully shutting down...")
		// Stopping the aggregator closes the SSE subscriptions so open
		// streams end before the listener drains.
		agg.Stop()
		return app.ShutdownWithTimeout(5 * time.Second)
	}
}
