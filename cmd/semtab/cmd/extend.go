package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablab/semtab/pkg/services"
	"github.com/tablab/semtab/pkg/tables"
)

// extendCmd pulls external properties into new columns of a backend
// table through one of the extension services.
var extendCmd = &cobra.Command{
	Use:   "extend <dataset-id> <table-id> <column>",
	Short: "Extend a reconciled column with external properties",
	Long: `Extend fetches a table, runs one of the extension services against a
reconciled column, and pushes the extended table back to the backend
unless --dry-run is set.

The service picks the required flags:

  reconciledColumnExt       --properties P17,P36
  meteoPropertiesOpenMeteo  --properties tavg,prcp --date-column Date
  wikidataPropertySPARQL    --sparql-properties "P17 P36"`,
	Args: cobra.ExactArgs(3),
	RunE: runExtend,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <dataset-id> <table-id> <column>",
	Short: "Suggest Wikidata properties for a reconciled column",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		doc, err := client.Table(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("fetching table: %w", err)
		}
		suggestions, err := client.Suggest(ctx, doc, args[2])
		if err != nil {
			return fmt.Errorf("fetching suggestions: %w", err)
		}

		limit, _ := cmd.Flags().GetInt("top")
		for _, s := range suggestions.Top(limit) {
			fmt.Printf("%-12s %-32s %5.1f%% (%d entities)\n", s.ID, s.Label, s.Percentage, s.Count)
		}
		return nil
	},
}

func init() {
	extendCmd.Flags().String("service", string(services.ReconciledColumnExt), "extension service id")
	extendCmd.Flags().StringSlice("properties", nil, "property ids to pull")
	extendCmd.Flags().String("date-column", "", "date column for the meteo extender")
	extendCmd.Flags().String("decimal-format", "comma", "decimal format for the meteo extender")
	extendCmd.Flags().String("sparql-properties", "", "property list for the SPARQL extender")
	extendCmd.Flags().Bool("dry-run", false, "compose locally without saving to the backend")
	extendCmd.Flags().String("out", "", "also write the extended document to a .json or .yaml file")
	rootCmd.AddCommand(extendCmd)

	suggestCmd.Flags().Int("top", 10, "number of suggestions to print")
	rootCmd.AddCommand(suggestCmd)
}

func runExtend(cmd *cobra.Command, args []string) error {
	datasetID, tableID, column := args[0], args[1], args[2]
	service, _ := cmd.Flags().GetString("service")
	properties, _ := cmd.Flags().GetStringSlice("properties")
	dateColumn, _ := cmd.Flags().GetString("date-column")
	decimalFormat, _ := cmd.Flags().GetString("decimal-format")
	sparqlProperties, _ := cmd.Flags().GetString("sparql-properties")
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

	var merged *tables.Document
	switch services.ID(service) {
	case services.ReconciledColumnExt:
		merged, _, err = client.ExtendReconciledColumn(ctx, doc, column, properties)
	case services.MeteoPropertiesOpenMeteo:
		merged, _, err = client.ExtendMeteo(ctx, doc, column, properties, dateColumn, decimalFormat)
	case services.WikidataPropertySPARQL:
		merged, _, err = client.ExtendSPARQL(ctx, doc, column, sparqlProperties)
	default:
		return fmt.Errorf("unknown extension service %q (valid: %v)", service, services.Extenders())
	}
	if err != nil {
		return fmt.Errorf("extending column %q: %w", column, err)
	}

	fmt.Printf("Extended %q with %s: table now has %d columns\n",
		column, service, merged.Columns.Len())

	if out != "" {
		if err := tables.Save(merged, out); err != nil {
			return err
		}
		fmt.Printf("Wrote extended document to %s\n", out)
	}
	if dryRun {
		return nil
	}

	if _, err := client.Save(ctx, merged); err != nil {
		return fmt.Errorf("saving table: %w", err)
	}
	fmt.Println("Saved extended table to backend")
	return nil
}
