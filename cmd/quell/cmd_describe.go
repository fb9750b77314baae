package main

import (
	"os"

	"github.com/likearthian/quell"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type columnView struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Null      bool     `yaml:"null"`
	Size      int      `yaml:"size,omitempty"`
	Precision int      `yaml:"precision,omitempty"`
	Unsigned  bool     `yaml:"unsigned,omitempty"`
	Options   []string `yaml:"options,omitempty"`
}

type schemaView struct {
	Table         string       `yaml:"table"`
	PrimaryKeys   []string     `yaml:"primary_keys"`
	AutoIncrement string       `yaml:"autoincrement,omitempty"`
	Columns       []columnView `yaml:"columns"`
}

func newSchemaView(table string, schema *quell.Schema) schemaView {
	view := schemaView{
		Table:         table,
		PrimaryKeys:   schema.PrimaryKeys,
		AutoIncrement: schema.AutoIncrement,
	}

	for _, name := range schema.ColumnNames() {
		ct, _ := schema.Column(name)
		spec := ct.Spec()
		view.Columns = append(view.Columns, columnView{
			Name:      name,
			Type:      spec.Name,
			Null:      spec.Null,
			Size:      spec.Size,
			Precision: spec.Precision,
			Unsigned:  spec.Unsigned,
			Options:   spec.Options,
		})
	}

	return view
}

func describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Print the parsed schema of a table",
		Example: `  quell describe users --driver sqlite --dsn ./app.db
  quell describe shop.orders -c quell.yaml`,
		Args: cobra.ExactArgs(1),
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

			schema, err := model.LoadSchema(cmd.Context())
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(newSchemaView(args[0], schema))
		},
	}
}
