package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cwatch-dashboard/backend/system"
	"cwatch-dashboard/backend/tui"
)

func newTopCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "top",
		Short: "Show the dashboard in the terminal",
		Long: `Polls the CWatch API and renders the dashboard in the terminal.

Keys: tab switch list, r refresh, b block, s mark safe, u unblock, q quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			// stdout belongs to the renderer
			initLogging(cfg, false)
			defer system.Close()

			clock := system.NewRealClock()
			d, err := newDashboard(cfg, clock)
			if err != nil {
				return err
			}
			defer d.Close()

			updates, unsubscribe := d.agg.Subscribe()
			defer unsubscribe()

			ctx := cmd.Context()
			if err := d.agg.Start(ctx); err != nil {
				return err
			}

			model := tui.NewDashboardModel(d.agg, updates, clock)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			return err
		},
	}
}
