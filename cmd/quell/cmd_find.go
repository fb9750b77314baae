package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/likearthian/quell"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// parseWhere turns col=value pairs into a lookup. Repeating a column matches
// any of its values and the literal NULL matches NULL. NULL cannot be repeated
// or mixed with other values of the same column.
func parseWhere(pairs []string) (map[string]any, error) {
	where := make(map[string]any)
	for _, pair := range pairs {
		col, val, ok := strings.Cut(pair, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid filter %q, expected col=value", pair)
		}

		var v any = val
		if val == "NULL" {
			v = nil
		}

		cur, seen := where[col]
		if seen && (v == nil || cur == nil) {
			return nil, fmt.Errorf("invalid filter %q, NULL cannot be combined with other values of %s", pair, col)
		}

		switch list, isList := cur.([]any); {
		case !seen:
			where[col] = v
		case isList:
			where[col] = append(list, v)
		default:
			where[col] = []any{cur, v}
		}
	}
	return where, nil
}

func addPagingFlags(fs *pflag.FlagSet, limit, offset *int) {
	fs.IntVar(limit, "limit", 0, "Maximum number of rows")
	fs.IntVar(offset, "offset", 0, "Number of rows to skip")
}

func printRecords(records []*quell.Record) error {
	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Data())
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(rows)
}

func findCmd() *cobra.Command {
	var (
		where  []string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "find <table>",
		Short: "List the rows of a table matching a filter",
		Example: `  quell find users --where status=active --limit 20
  quell find users --where id=1 --where id=2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lookup, err := parseWhere(where)
			if err != nil {
				return err
			}

			db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			model, err := newModel(db, args[0])
			if err != nil {
				return err
			}

			records, err := model.Find(lookup).Limit(limit).Offset(offset).Exec(cmd.Context())
			if err != nil {
				return err
			}

			return printRecords(records)
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Filter as col=value, may be repeated")
	addPagingFlags(cmd.Flags(), &limit, &offset)

	return cmd
}

func getCmd() *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:   "get <table> <value>",
		Short: "Load one row by primary key or by a single column",
		Example: `  quell get users 42
  quell get users jane@example.com --field email`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			model, err := newModel(db, args[0])
			if err != nil {
				return err
			}

			var opts []quell.QueryOption
			if field != "" {
				opts = append(opts, quell.WithField(field))
			}

			rec := model.New(nil)
			found, err := rec.Load(cmd.Context(), args[1], opts...)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no row in %s matches %s", args[0], args[1])
			}

			return printRecords([]*quell.Record{rec})
		},
	}

	cmd.Flags().StringVarP(&field, "field", "f", "", "Column to match instead of the primary key")

	return cmd
}
