package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablab/semtab/pkg/modifier"
	"github.com/tablab/semtab/pkg/tables"
)

// transformCmd applies local grid transforms to a CSV file, without
// touching the backend.
var transformCmd = &cobra.Command{
	Use:   "transform <csv-file>",
	Short: "Apply local transforms to a CSV file",
	Long: `Transform applies local cleanup transforms to a CSV file before
upload: ISO date normalization, lowercasing, empty-row removal, column
renames and reordering. The result is written to --out or stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runTransform,
}

// propagateCmd copies an accepted annotation onto every cell of a
// column that shares the same label.
var propagateCmd = &cobra.Command{
	Use:   "propagate <document-file> <column>",
	Short: "Propagate an accepted annotation across a column",
	Long: `Propagate reads a table document from a .json or .yaml file and
copies the annotation given as --type (a JSON object with at least
"originalValue" and "id") onto every cell of the column whose label
matches originalValue. The updated document is written back in place
or to --out.`,
	Args: cobra.ExactArgs(2),
	RunE: runPropagate,
}

func init() {
	transformCmd.Flags().StringSlice("iso-date", nil, "columns to normalize to YYYY-MM-DD")
	transformCmd.Flags().StringSlice("lower", nil, "columns to lowercase")
	transformCmd.Flags().Bool("drop-na", false, "drop rows with empty cells")
	transformCmd.Flags().StringToString("rename", nil, "column renames, old=new")
	transformCmd.Flags().StringSlice("order", nil, "column order for the output")
	transformCmd.Flags().String("out", "", "write the result to a file instead of stdout")
	rootCmd.AddCommand(transformCmd)

	propagateCmd.Flags().String("type", "", "annotation to propagate, as a JSON object")
	propagateCmd.Flags().String("out", "", "write the result to a different file")
	rootCmd.AddCommand(propagateCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%s has no header row", args[0])
	}
	grid := modifier.NewGrid(records[0], records[1:])

	isoDates, _ := cmd.Flags().GetStringSlice("iso-date")
	for _, column := range isoDates {
		msg, err := modifier.ISODate(grid, column)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, msg)
	}
	lower, _ := cmd.Flags().GetStringSlice("lower")
	for _, column := range lower {
		if err := modifier.LowerCase(grid, column); err != nil {
			return err
		}
	}
	if dropNA, _ := cmd.Flags().GetBool("drop-na"); dropNA {
		modifier.DropNA(grid)
	}
	if renames, _ := cmd.Flags().GetStringToString("rename"); len(renames) > 0 {
		if err := modifier.RenameColumns(grid, renames); err != nil {
			return err
		}
	}
	if order, _ := cmd.Flags().GetStringSlice("order"); len(order) > 0 {
		if err := modifier.ReorderColumns(grid, order); err != nil {
			return err
		}
	}

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		out, err = os.Create(path)
		if err != nil {
			return err
		}
		defer out.Close()
	}
	w := csv.NewWriter(out)
	if err := w.Write(grid.Columns); err != nil {
		return err
	}
	record := make([]string, len(grid.Columns))
	for _, row := range grid.Rows {
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func runPropagate(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("type")
	if raw == "" {
		return fmt.Errorf("--type is required")
	}
	var obj modifier.TypeObject
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("parsing --type: %w", err)
	}

	doc, err := tables.Load(args[0])
	if err != nil {
		return err
	}
	merged, _, err := modifier.PropagateDocument(doc, args[1], &obj)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = args[0]
	}
	if err := tables.Save(merged, out); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}
