package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/service"
	redisdb "github.com/assignhub/marketplace/internal/infrastructure/db/redis"
	"github.com/assignhub/marketplace/internal/infrastructure/scheduler"
	"github.com/assignhub/marketplace/pkg/logger"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one overdue sweep now",
		Long: `Moves every accepted assignment whose deadline has passed to due.
The sweep takes the same distributed lock as the scheduled job, so it is safe
to run while servers are up. Overdue notifications are delivered before the
command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), true, func(a *app) error {
				dispatcher, stopNotifications, err := startNotifications(cmd.Context(), a)
				if err != nil {
					return err
				}
				defer stopNotifications()

				reconciler := service.NewReconciler(a.assignments, a.users, dispatcher, logger.Component("reconciler"))
				sched, err := scheduler.New(a.cfg.Jobs.ReconcileSchedule, reconciler, redisdb.NewLocker(a.redis), logger.Component("scheduler"))
				if err != nil {
					return err
				}

				res, err := sched.RunOnce(cmd.Context())
				if errors.Is(err, scheduler.ErrLocked) {
					a.log.Warn().Msg("another sweep holds the lock; nothing done")
					return nil
				}
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(res)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Scanned", "Transitioned", "Skipped", "Failed"})
				tw.AppendRow(table.Row{res.Scanned, res.Transitioned, res.Skipped, res.Failed})
				tw.Render()
				return nil
			})
		},
	}
}

func newEnsureAdminsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-admins",
		Short: "Upsert the BOOTSTRAP_ADMINS accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(a *app) error {
				n, err := service.EnsureAdmins(cmd.Context(), a.users, adminSpecs(a), logger.Component("bootstrap"))
				if err != nil {
					return err
				}
				a.log.Info().Int("changed", n).Int("configured", len(a.cfg.BootstrapAdmins)).Msg("admins ensured")
				return nil
			})
		},
	}
}

func newSeedCategoriesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-categories",
		Short: "Upsert assignment categories",
		Long:  "Upserts categories from a YAML file, or the built-in defaults when --file is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cats := service.DefaultCategories()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				if cats, err = service.LoadCategories(f); err != nil {
					return err
				}
			}
			return withApp(cmd.Context(), false, func(a *app) error {
				if err := service.SeedCategories(cmd.Context(), a.categories, cats, logger.Component("seed")); err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(cats)
				}
				printCategories(cats)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "categories YAML file")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the ledger totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(a *app) error {
				summary, err := service.NewFinanceService(a.assignments, logger.Component("finance")).Summary(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(summary)
				}
				printSummary(summary)
				return nil
			})
		},
	}
}

func printCategories(cats []*domain.Category) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Name", "Handler", "Channel", "Description"})
	for _, c := range cats {
		tw.AppendRow(table.Row{c.Name, c.HandlerType, c.ChannelID, c.Description})
	}
	tw.Render()
}

func printSummary(s *domain.FinancialSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Metric", "Amount"})
	tw.AppendRow(table.Row{"Client payments", s.TotalClientPayments.StringFixed(2)})
	tw.AppendRow(table.Row{"Helper payouts", s.TotalHelperPayouts.StringFixed(2)})
	tw.AppendSeparator()
	tw.AppendFooter(table.Row{"Platform profit", s.PlatformProfit.StringFixed(2)})
	tw.Render()
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
