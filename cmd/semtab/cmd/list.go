package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listCmd groups the discovery subcommands.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List services, datasets, or tables",
}

var listReconciliatorsCmd = &cobra.Command{
	Use:   "reconciliators",
	Short: "List reconciliation services the backend exposes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		infos, err := client.Reconciliators(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing reconciliators: %w", err)
		}
		for _, info := range infos {
			fmt.Printf("%-24s %s\n", info.ID, info.Name)
		}
		return nil
	},
}

var listExtendersCmd = &cobra.Command{
	Use:   "extenders",
	Short: "List extension services the backend exposes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		infos, err := client.Extenders(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing extenders: %w", err)
		}
		for _, info := range infos {
			fmt.Printf("%-24s %s\n", info.ID, info.Name)
		}
		return nil
	},
}

var listDatasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List datasets of the authenticated user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		datasets, err := client.Datasets(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing datasets: %w", err)
		}
		if len(datasets) == 0 {
			fmt.Println("No datasets found")
			return nil
		}
		for _, ds := range datasets {
			fmt.Printf("%-24s %-32s %d tables\n", ds.ID, ds.Name, ds.NTables)
		}
		return nil
	},
}

var listTablesCmd = &cobra.Command{
	Use:   "tables <dataset-id>",
	Short: "List tables in a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		tables, err := client.Tables(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("listing tables: %w", err)
		}
		if len(tables) == 0 {
			fmt.Printf("No tables found in dataset %s\n", args[0])
			return nil
		}
		for _, tbl := range tables {
			fmt.Printf("%-24s %-32s %d rows x %d cols\n", tbl.ID, tbl.Name, tbl.NRows, tbl.NCols)
		}
		return nil
	},
}

func init() {
	listCmd.AddCommand(listReconciliatorsCmd)
	listCmd.AddCommand(listExtendersCmd)
	listCmd.AddCommand(listDatasetsCmd)
	listCmd.AddCommand(listTablesCmd)
	rootCmd.AddCommand(listCmd)
}
