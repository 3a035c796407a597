package cmd

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/sarchlab/tickrun/datarecording"
	"github.com/sarchlab/tickrun/simulation"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <db.sqlite3>",
	Short: "Print the records of a SQLite database written by a run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Bool("list", false, "List the tables and exit.")
	inspectCmd.Flags().String("table", simulation.SQLiteTable,
		"The table to print.")
	inspectCmd.Flags().String("where", "",
		"A SQL condition the rows must match, e.g. \"state_id = 'main'\".")
	inspectCmd.Flags().String("order-by", "", "SQL ordering of the rows.")
	inspectCmd.Flags().Int("limit", 20, "Maximum number of rows. 0 prints all.")
	inspectCmd.Flags().Int("offset", 0, "Number of rows to skip.")
}

func inspect(cmd *cobra.Command, path string) error {
	r, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if list, _ := cmd.Flags().GetBool("list"); list {
		tables, err := r.ListTables(ctx)
		if err != nil {
			return err
		}

		for _, t := range tables {
			fmt.Fprintln(out, t)
		}

		return nil
	}

	table, _ := cmd.Flags().GetString("table")
	params := datarecording.QueryParams{}
	params.Where, _ = cmd.Flags().GetString("where")
	params.OrderBy, _ = cmd.Flags().GetString("order-by")
	params.Limit, _ = cmd.Flags().GetInt("limit")
	params.Offset, _ = cmd.Flags().GetInt("offset")

	rows, err := r.Query(ctx, table, params)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}

	return printRows(out, rows)
}

func printRows(w io.Writer, rows *datarecording.Rows) error {
	// Column names are printed as stored so they can be used in --where.
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAutoFormat(tw.Off))

	header := make([]any, len(rows.Columns))
	for i, c := range rows.Columns {
		header[i] = c
	}

	table.Header(header...)

	for _, row := range rows.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}

		table.Append(cells)
	}

	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "(%d of %d rows)\n", len(rows.Values), rows.TotalCount)

	return err
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
