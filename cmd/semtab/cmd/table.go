package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablab/semtab"
	"github.com/tablab/semtab/pkg/tables"
)

// tableCmd groups the table management subcommands.
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Fetch, upload, delete, or export tables",
}

var tableGetCmd = &cobra.Command{
	Use:   "get <dataset-id> <table-id>",
	Short: "Fetch a table document",
	Long: `Fetch a table document from the backend. With --out the document
is written to a .json or .yaml file, otherwise a summary is printed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		doc, err := client.Table(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("fetching table: %w", err)
		}

		out, _ := cmd.Flags().GetString("out")
		if out != "" {
			if err := tables.Save(doc, out); err != nil {
				return err
			}
			fmt.Printf("Saved table %s to %s\n", doc.Table.ID, out)
			return nil
		}

		fmt.Printf("%s (%s): %d cols, %d rows, %d/%d cells reconciled\n",
			doc.Table.Name, doc.Table.ID,
			doc.Columns.Len(), doc.Rows.Len(),
			doc.Table.NCellsReconciliated, doc.Table.NCells)
		doc.Columns.Range(func(name string, col *tables.Column) bool {
			fmt.Printf("  %-24s %s\n", name, col.Status)
			return true
		})
		return nil
	},
}

var tableAddCmd = &cobra.Command{
	Use:   "add <dataset-id> <name> <csv-file>",
	Short: "Upload a CSV file as a new table",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		file, err := os.Open(args[2])
		if err != nil {
			return err
		}
		defer file.Close()

		id, err := client.AddTable(cmd.Context(), args[0], args[1], file)
		if err != nil {
			return fmt.Errorf("uploading table: %w", err)
		}
		fmt.Printf("Table added with ID: %s\n", id)
		return nil
	},
}

var tableDeleteCmd = &cobra.Command{
	Use:   "delete <dataset-id> <table-id>",
	Short: "Delete a table from a dataset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.DeleteTable(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("deleting table: %w", err)
		}
		fmt.Printf("Deleted table %s\n", args[1])
		return nil
	},
}

var tableExportCmd = &cobra.Command{
	Use:   "export <dataset-id> <table-id>",
	Short: "Export a table as CSV or W3C JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		data, err := client.Export(cmd.Context(), args[0], args[1], semtab.ExportFormat(format))
		if err != nil {
			return fmt.Errorf("exporting table: %w", err)
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Exported table %s to %s\n", args[1], out)
		return nil
	},
}

func init() {
	tableGetCmd.Flags().String("out", "", "write the document to a .json or .yaml file")
	tableExportCmd.Flags().String("format", "csv", `export format: "csv" or "w3c"`)
	tableExportCmd.Flags().String("out", "", "write the export to a file instead of stdout")

	tableCmd.AddCommand(tableGetCmd)
	tableCmd.AddCommand(tableAddCmd)
	tableCmd.AddCommand(tableDeleteCmd)
	tableCmd.AddCommand(tableExportCmd)
	rootCmd.AddCommand(tableCmd)
}
