package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dashboard",
		Short: "Dashboard - paginated users and products from the dummyjson API",
		Long: `Dashboard serves list views of the dummyjson users and products collections
with page size, per-field filters, free-text search and product categories.

Examples:
  # Start the web server
  dashboard serve --config configs/config.yaml

  # Print the second page of laptops
  dashboard list products --category laptops --page 2

  # Filter users by first name
  dashboard list users --filter firstName=Emily --page-size 10`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newListCmd())
	return root
}
