// Command marketplace runs the assignment marketplace API and its maintenance jobs.
//
// @title                       Assignment Marketplace API
// @version                     1.0
// @description                 Assignment lifecycle, helper payouts and admin ledger.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "marketplace",
	Short: "Assignment marketplace server and maintenance jobs",
	Long: `marketplace serves the assignment lifecycle API and runs its maintenance jobs.

Configuration is read from the environment (MONGO_URI, REDIS_ADDR, JWT_SECRET, ...).
- serve:            run the HTTP API, the notification dispatcher and the overdue scheduler
- reconcile:        run one overdue sweep now
- ensure-admins:    upsert the BOOTSTRAP_ADMINS accounts
- seed-categories:  upsert categories from a YAML file (or the built-in defaults)
- summary:          print the ledger totals`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(
		newServeCmd(),
		newReconcileCmd(),
		newEnsureAdminsCmd(),
		newSeedCategoriesCmd(),
		newSummaryCmd(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
