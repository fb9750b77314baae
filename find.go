package quell

import (
	"context"
)

// Finder is a lazily executed query over a model's table.
type Finder struct {
	model   *Model
	where   map[string]any
	columns []string
	order   []string
	limit   int
	offset  int
}

// Find returns a query over every row matching where. Nothing runs until Exec.
func (m *Model) Find(where map[string]any) *Finder {
	return &Finder{model: m, where: where}
}

func (f *Finder) Columns(columns ...string) *Finder {
	f.columns = columns
	return f
}

// OrderBy sorts the rows by fields. Prefix a field with "-" to sort it
// descending.
func (f *Finder) OrderBy(fields ...string) *Finder {
	f.order = fields
	return f
}

func (f *Finder) Limit(n int) *Finder {
	f.limit = n
	return f
}

func (f *Finder) Offset(n int) *Finder {
	f.offset = n
	return f
}

// Query compiles the finder without running it.
func (f *Finder) Query() (Query, error) {
	q, err := f.model.builder.Select(f.model.tablename, f.where, f.columns...)
	if err != nil {
		return Query{}, err
	}

	if pb, ok := f.model.builder.(pagingBuilder); ok {
		q = pb.Sort(q, f.order...)
		q = pb.Page(q, f.limit, f.offset)
	}

	return q, nil
}

// Exec runs the query on conn, or on the model connection when conn is
// omitted, and wraps each row as a record that exists.
func (f *Finder) Exec(ctx context.Context, conn ...Conn) ([]*Record, error) {
	var c Conn
	if len(conn) > 0 && conn[0] != nil {
		c = conn[0]
	} else {
		c = f.model.conn
	}
	if c == nil {
		return nil, ErrNoConnection
	}

	q, err := f.Query()
	if err != nil {
		return nil, err
	}

	res, err := f.model.runner.Run(ctx, c, q)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		var opts []RecordOption
		if c != f.model.conn {
			opts = append(opts, RecordConn(c))
		}
		rec := f.model.New(row, opts...)
		rec.exists = Present
		records = append(records, rec)
	}

	return records, nil
}
