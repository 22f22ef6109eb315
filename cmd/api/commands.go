package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go-fed-dashboard/internal/alert"
	"go-fed-dashboard/internal/connectors/director"
	"go-fed-dashboard/internal/connectors/downtime"
	"go-fed-dashboard/internal/daterange"
	"go-fed-dashboard/internal/guard"
	"go-fed-dashboard/internal/metricpage"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

// printAlerts renders error alerts on stderr instead of a dialog.
var printAlerts = alert.DispatchFunc(func(a alert.Action) {
	if a.Type != alert.KindOpenErrorAlert || a.Payload == nil {
		return
	}
	_, _ = fmt.Fprintln(color.Error, red(bold(a.Payload.Title)))
	_, _ = fmt.Fprintln(color.Error, a.Payload.Error)
})

func newTable(headers ...any) *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	row := make([]any, 0, len(headers))
	for _, h := range headers {
		row = append(row, bold(h))
	}
	tbl.AddRow(row...)
	return tbl
}

func newServersCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List the servers the director knows about",
		Example: `
fedboard servers
fedboard servers --type cache
`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			servers, err := guard.Run(cmd.Context(), printAlerts, func(ctx context.Context) ([]director.ServerGeneral, error) {
				if strings.TrimSpace(cfg.DirectorURL) == "" {
					return nil, errors.New("director integration disabled (set FEDBOARD_DIRECTOR_URL)")
				}
				client := director.NewClient(cfg.DirectorURL, director.Options{
					Timeout: cfg.DirectorTimeout,
					Token:   cfg.DirectorToken,
				})
				return client.Servers(ctx, kind)
			}, guard.WithTitle("Failed to fetch servers"), guard.WithPassError())
			if err != nil {
				return err
			}

			tbl := newTable("NAME", "TYPE", "HEALTH", "FILTERED", "URL")
			for _, s := range servers {
				health := green(s.HealthStatus)
				if s.Unhealthy() {
					health = red(s.HealthStatus)
				}
				filtered := ""
				if s.Filtered {
					filtered = s.FilteredType
				}
				tbl.AddRow(s.Name, s.Kind(), health, filtered, s.URL)
			}
			_, _ = fmt.Fprintln(color.Output, tbl)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "", "only list servers of this type (origin|cache)")
	return cmd
}

func newDowntimeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "downtime",
		Short: "Inspect scheduled downtime",
	}

	var month string
	list := &cobra.Command{
		Use:   "list",
		Short: "List downtime overlapping a month",
		Example: `
fedboard downtime list
fedboard downtime list --month 2026-03
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc := cfg.Location()
			m := time.Now().In(loc)
			if month != "" {
				parsed, err := time.ParseInLocation("2006-01", month, loc)
				if err != nil {
					return errors.Errorf("invalid month %q, expected YYYY-MM", month)
				}
				m = parsed
			}

			store, err := downtime.Open(downtime.Options{
				Driver:       cfg.DowntimeDriver,
				SQLitePath:   cfg.DowntimeSQLitePath,
				MySQLDSN:     cfg.MySQLDSN(),
				ConnTimeout:  cfg.DBConnTimeout,
				QueryTimeout: cfg.DBQueryTimeout,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			rng := daterange.MonthRange(m.Year(), m.Month(), loc)
			items, err := store.List(cmd.Context(), downtime.WindowFilter(rng, loc))
			if err != nil {
				return err
			}

			tbl := newTable("SERVER", "CLASS", "SEVERITY", "START", "END", "DESCRIPTION")
			for _, rec := range items {
				end := "indefinite"
				if !rec.Indefinite() {
					end = time.UnixMilli(rec.EndTime).In(loc).Format(time.DateTime)
				}
				class := rec.Class
				if class == downtime.ClassUnscheduled {
					class = red(class)
				}
				tbl.AddRow(rec.ServerName, class, rec.Severity,
					time.UnixMilli(rec.StartTime).In(loc).Format(time.DateTime), end, rec.Description)
			}
			_, _ = fmt.Fprintln(color.Output, tbl)
			return nil
		},
	}
	list.Flags().StringVar(&month, "month", "", "month to list as YYYY-MM (default current month)")

	cmd.AddCommand(list)
	return cmd
}

func newPagesCommand() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "pages [name]",
		Short: "List metric pages or show the queries of one",
		Example: `
fedboard pages
fedboard pages origin --server origin-1.example.org
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := metricpage.NewRegistry()
			if path := strings.TrimSpace(cfg.MetricPagesFile); path != "" {
				defs, err := metricpage.LoadFile(path)
				if err != nil {
					return err
				}
				for _, d := range defs {
					reg.Add(d)
				}
			}

			if len(args) == 0 {
				for _, name := range reg.Names() {
					_, _ = fmt.Fprintln(color.Output, name)
				}
				return nil
			}

			def, ok := reg.Get(args[0])
			if !ok {
				return errors.Errorf("unknown metric page %q", args[0])
			}
			page := def.Compose(server)

			tbl := newTable("SECTION", "KEY", "KIND", "TITLE", "QUERY")
			for _, w := range page.Widgets {
				tbl.AddRow(w.Section, w.Key, string(w.Kind), w.Title, w.Query)
			}
			_, _ = fmt.Fprintln(color.Output, tbl)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "server name to filter the queries by")
	return cmd
}
