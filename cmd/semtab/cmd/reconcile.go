package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablab/semtab/pkg/services"
	"github.com/tablab/semtab/pkg/tables"
)

// reconcileCmd reconciles one column of a backend table and pushes the
// annotated result back.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile <dataset-id> <table-id> <column>",
	Short: "Reconcile a table column against an entity service",
	Long: `Reconcile fetches a table, reconciles the given column against an
entity reconciliation service, and pushes the annotated table back to
the backend unless --dry-run is set.

Available services: ` + servicesLine() + `.`,
	Args: cobra.ExactArgs(3),
	RunE: runReconcile,
}

func servicesLine() string {
	ids := services.Reconciliators()
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += string(id)
	}
	return out
}

func init() {
	reconcileCmd.Flags().String("service", string(services.Wikidata), "reconciliation service id")
	reconcileCmd.Flags().StringSlice("aux", nil, "extra context columns for services that accept them")
	reconcileCmd.Flags().Bool("dry-run", false, "compose locally without saving to the backend")
	reconcileCmd.Flags().String("out", "", "also write the annotated document to a .json or .yaml file")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	datasetID, tableID, column := args[0], args[1], args[2]
	service, _ := cmd.Flags().GetString("service")
	aux, _ := cmd.Flags().GetStringSlice("aux")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out, _ := cmd.Flags().GetString("out")

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	doc, err := client.Table(ctx, datasetID, tableID)
	if err != nil {
		return fmt.Errorf("fetching table: %w", err)
	}

	merged, _, err := client.Reconcile(ctx, doc, column, services.ID(service), aux)
	if err != nil {
		return fmt.Errorf("reconciling column %q: %w", column, err)
	}

	fmt.Printf("Reconciled %q with %s: %d/%d cells annotated\n",
		column, service, merged.Table.NCellsReconciliated, merged.Table.NCells)

	if out != "" {
		if err := tables.Save(merged, out); err != nil {
			return err
		}
		fmt.Printf("Wrote annotated document to %s\n", out)
	}
	if dryRun {
		return nil
	}

	if _, err := client.Save(ctx, merged); err != nil {
		return fmt.Errorf("saving table: %w", err)
	}
	fmt.Println("Saved annotated table to backend")
	return nil
}
