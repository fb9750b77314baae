package quell

import (
	"sync"
)

// Client holds the default connection and model options of an application
// and keeps one model per table.
type Client struct {
	conn    Conn
	options []ModelOption

	mu     sync.Mutex
	models map[string]*Model
}

// NewClient returns a client whose models use conn and options unless
// overridden per model.
func NewClient(conn Conn, options ...ModelOption) *Client {
	return &Client{
		conn:    conn,
		options: options,
		models:  make(map[string]*Model),
	}
}

func (c *Client) Conn() Conn {
	return c.conn
}

// Define creates a model for tablename and registers it, replacing any model
// previously registered for the table.
func (c *Client) Define(tablename string, options ...ModelOption) (*Model, error) {
	opts := append([]ModelOption{WithConnection(c.conn)}, c.options...)
	m, err := NewModel(tablename, append(opts, options...)...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.models[tablename] = m
	c.mu.Unlock()

	return m, nil
}

// Model returns the registered model for tablename, defining one with the
// client defaults on first use.
func (c *Client) Model(tablename string) (*Model, error) {
	c.mu.Lock()
	m, ok := c.models[tablename]
	c.mu.Unlock()
	if ok {
		return m, nil
	}

	return c.Define(tablename)
}
