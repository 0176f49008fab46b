package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"cwatch-dashboard/backend/config"
	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/services"
	"cwatch-dashboard/backend/system"
)

func newSnapshotCmd(opts *globalOptions) *cobra.Command {
	var (
		fromRedis bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Refresh once and print the dashboard",
		Long: `Runs a single refresh cycle against the CWatch API and prints the result.
With --from-redis the state mirrored by a running gateway is printed instead.`,
		Example: `  cwatch-dashboard snapshot
  cwatch-dashboard snapshot --json
  CWATCH_REDIS_ADDR=localhost:6379 cwatch-dashboard snapshot --from-redis`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			initLogging(cfg, false)
			defer system.Close()

			var state models.ViewState
			if fromRedis {
				state, err = mirroredState(cmd.Context(), cfg)
			} else {
				state, err = refreshedState(cmd.Context(), cfg)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, state)
			}
			printSnapshot(out, state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromRedis, "from-redis", false, "read the state mirrored by a running gateway")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newSeriesCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print the 24-hour traffic series",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			initLogging(cfg, false)
			defer system.Close()

			loc, err := cfg.Chart.Location()
			if err != nil {
				return err
			}
			client := services.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
			raw, err := client.TrafficChart(cmd.Context())
			if err != nil {
				return err
			}
			series := services.BuildTrafficSeries(raw, system.NewRealClock().Now().In(loc))

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, series)
			}
			printSeries(out, series)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func refreshedState(ctx context.Context, cfg config.Config) (models.ViewState, error) {
	d, err := newDashboard(cfg, system.NewRealClock())
	if err != nil {
		return models.ViewState{}, err
	}
	defer d.Close()

	res := d.agg.Refresh(ctx, services.TriggerManual)
	if res.Err != nil {
		return models.ViewState{}, res.Err
	}
	return d.agg.State(), nil
}

func mirroredState(ctx context.Context, cfg config.Config) (models.ViewState, error) {
	mirror, err := services.NewRedisMirror(ctx, services.RedisMirrorConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return models.ViewState{}, err
	}
	defer mirror.Close()
	return mirror.Load(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSnapshot(w io.Writer, state models.ViewState) {
	s := state.Stats
	fmt.Fprintf(w, "Generation %d · updated %s", state.Generation, state.LastUpdated.Local().Format("2006-01-02 15:04:05"))
	if state.Stale {
		fmt.Fprintf(w, " · STALE: %s", state.LastError)
	}
	fmt.Fprintln(w)

	stats := tablewriter.NewWriter(w)
	stats.SetHeader([]string{"Total", "Today", "Last Hour", "Req/s", "Suspicious", "Blocked"})
	stats.Append([]string{
		humanize.Comma(s.TotalRequests),
		humanize.Comma(s.RequestsToday),
		humanize.Comma(s.RequestsHour),
		strconv.FormatFloat(s.RequestsPerSecond, 'f', 2, 64),
		humanize.Comma(s.SuspiciousIPs),
		humanize.Comma(s.BlockedIPs),
	})
	stats.Render()

	printIPTable(w, "Suspicious IPs", state.Suspicious)
	printIPTable(w, "Blocked IPs", state.Blocked)

	fmt.Fprintf(w, "\nRecent Activity (%d)\n", len(state.Activity))
	if len(state.Activity) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"IP", "Reason", "Time", "Status"})
		for _, a := range state.Activity {
			table.Append([]string{a.IP, a.Reason, a.Time, a.NormalizedStatus()})
		}
		table.Render()
	}
}

func printIPTable(w io.Writer, title string, records []models.IPRecord) {
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(records))
	if len(records) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"IP", "Reason", "Country", "Time"})
	for _, r := range records {
		table.Append([]string{r.IP, r.Reason, r.Country, r.Timestamp()})
	}
	table.Render()
}

func printSeries(w io.Writer, series []models.TrafficPoint) {
	var peak int64
	for _, p := range series {
		peak = max(peak, p.Requests)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Hour", "Requests", ""})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, p := range series {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("#", int(p.Requests*40/peak))
		}
		table.Append([]string{p.Time, humanize.Comma(p.Requests), bar})
	}
	table.SetFooter([]string{"Total", humanize.Comma(services.SeriesTotal(series)), ""})
	table.Render()
}
