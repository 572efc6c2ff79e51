package pgwire

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nanopg/nanopg/sql/internal/nanoerr"
	"github.com/nanopg/nanopg/sql/sqltmpl"
)

// Type selects how a query's results are shaped, per spec.md §4.B.
type Type int

const (
	// Void discards the result entirely; only errors/command-tag matter.
	Void Type = iota
	// Value expects exactly one column per row. Rows are returned as
	// they are, not unwrapped: each row's single value is Values[0].
	Value
	// Row_ returns an array of row objects.
	Row_
	// Full returns the command tag, the rows, and field descriptors.
	Full
)

// Row is a single decoded result row: a map from the (possibly
// hook-remapped) field name to its decoded value, in field order.
type Row struct {
	Fields []Field
	Values []any
}

// Field describes one column of a result.
type Field struct {
	Name    string
	TypeOID uint32
}

// Get returns the decoded value for the named field, or nil if absent.
func (r Row) Get(name string) any {
	for i, f := range r.Fields {
		if f.Name == name {
			return r.Values[i]
		}
	}
	return nil
}

// Result is the outcome of a Full query.
type Result struct {
	CommandTag string
	Rows       []Row
	Fields     []Field
}

// Hooks let callers remap field names (e.g. snake_case -> camelCase) and
// post-process decoded field values before a row is delivered.
type Hooks struct {
	RenameField func(name string) string
	MapValue    func(field Field, v any) any
}

// QueryOptions configures a single Query call.
type QueryOptions struct {
	Hooks Hooks
	// Stream, when true, delivers each row via Events.OnRow as it
	// arrives instead of buffering the full result set.
	Stream bool
}

// Handle represents one in-flight (or completed) query. Cancel sends a
// protocol-level CANCEL if and only if this call is still the active
// query on its Conn.
type Handle struct {
	conn   *Conn
	cancel context.CancelFunc
	done   chan struct{}
	result *Result
	err    error
}

// Cancel aborts the query if it is still running.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the query completes, returning its Result (for
// Value/Row/Full query types) and any error.
func (h *Handle) Wait() (*Result, error) {
	<-h.done
	return h.result, h.err
}

// Query sends tmpl and, depending on qt, streams or buffers the result.
// IDLE -> QUERY_WRITING -> QUERY_READING -> IDLE.
func (c *Conn) Query(ctx context.Context, qt Type, tmpl *sqltmpl.Template, opts QueryOptions) *Handle {
	h := &Handle{conn: c, done: make(chan struct{})}
	if c.state == StateClosed {
		h.err = nanoerr.New(nanoerr.CodePGNative, "query on closed connection")
		close(h.done)
		return h
	}
	qctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	c.active = &activeQuery{cancel: cancel}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}

	sql, params, err := sqltmpl.Render(tmpl, sqltmpl.Options{Escaper: Escaper(), Reindent: true})
	if err != nil {
		h.err = nanoerr.Wrap(nanoerr.CodeParse, "render query", err)
		c.active = nil
		c.armIdleTimer(ctx)
		close(h.done)
		return h
	}

	c.state = StateWriting
	res, err := c.exec(qctx, sql, params, qt, opts)
	c.state = StateReading
	c.active = nil
	c.state = StateIdle
	c.armIdleTimer(ctx)

	h.result, h.err = res, err
	close(h.done)
	return h
}

func (c *Conn) exec(ctx context.Context, sql string, params []any, qt Type, opts QueryOptions) (*Result, error) {
	if len(params) == 0 {
		mrr := c.pg.Exec(ctx, sql)
		return c.readMulti(mrr, qt, opts)
	}
	paramValues, paramFormats, paramOIDs := encodeParams(params)
	resultFormats := make([]int16, 0)
	rr := c.pg.ExecParams(ctx, sql, paramValues, paramOIDs, paramFormats, resultFormats)
	return c.readSingle(rr, qt, opts)
}

func encodeParams(params []any) ([][]byte, []int16, []uint32) {
	values := make([][]byte, len(params))
	formats := make([]int16, len(params))
	oids := make([]uint32, len(params))
	for i, p := range params {
		switch v := p.(type) {
		case nil:
			values[i] = nil
		case []string:
			values[i] = []byte(pgTextArrayLiteral(v))
		default:
			values[i] = []byte(fmt.Sprint(p))
		}
	}
	return values, formats, oids
}

func (c *Conn) readMulti(mrr *pgconn.MultiResultReader, qt Type, opts QueryOptions) (*Result, error) {
	final := &Result{}
	for mrr.NextResult() {
		rr := mrr.ResultReader()
		r, err := c.readResultReader(rr, qt, opts)
		if err != nil {
			_ = mrr.Close()
			return nil, err
		}
		final = r
	}
	if err := mrr.Close(); err != nil {
		return nil, serverError(err)
	}
	return final, nil
}

func (c *Conn) readSingle(rr *pgconn.ResultReader, qt Type, opts QueryOptions) (*Result, error) {
	return c.readResultReader(rr, qt, opts)
}

func (c *Conn) readResultReader(rr *pgconn.ResultReader, qt Type, opts QueryOptions) (*Result, error) {
	fds := rr.FieldDescriptions()
	fields := make([]Field, len(fds))
	for i, fd := range fds {
		name := string(fd.Name)
		if opts.Hooks.RenameField != nil {
			name = opts.Hooks.RenameField(name)
		}
		fields[i] = Field{Name: name, TypeOID: fd.DataTypeOID}
	}
	result := &Result{Fields: fields}
	for rr.NextRow() {
		vals := rr.Values()
		row := Row{Fields: fields, Values: make([]any, len(vals))}
		for i, raw := range vals {
			decoded, err := c.parsers.Decode(fields[i].TypeOID, raw)
			if err != nil {
				return nil, nanoerr.Wrap(nanoerr.CodePGNative, "decode field "+fields[i].Name, err)
			}
			if opts.Hooks.MapValue != nil {
				decoded = opts.Hooks.MapValue(fields[i], decoded)
			}
			row.Values[i] = decoded
		}
		if opts.Stream && c.events.OnRow != nil {
			c.events.OnRow(row)
		} else {
			result.Rows = append(result.Rows, row)
		}
	}
	tag, err := rr.Close()
	if err != nil {
		return nil, serverError(err)
	}
	result.CommandTag = tag.String()
	return coerceQueryType(result, qt)
}

func coerceQueryType(r *Result, qt Type) (*Result, error) {
	switch qt {
	case Void, Full:
		return r, nil
	case Value:
		if len(r.Fields) != 1 {
			return nil, nanoerr.New(nanoerr.CodePGNative, fmt.Sprintf("expected exactly one column, got %d", len(r.Fields)))
		}
		return r, nil
	case Row_:
		return r, nil
	default:
		return nil, fmt.Errorf("pgwire: unknown query type %d", qt)
	}
}

// serverError classifies a pgconn error, pulling out full PostgreSQL
// error fields (severity, sqlstate, detail, hint, position) when present.
func serverError(err error) error {
	var pgErr *pgconn.PgError
	if asPgError(err, &pgErr) {
		return nanoerr.FromPG(pgErr)
	}
	return nanoerr.Wrap(nanoerr.CodePGNative, "server error", err)
}

func asPgError(err error, target **pgconn.PgError) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if pe, ok := err.(*pgconn.PgError); ok {
			*target = pe
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Cancel sends a protocol-level CANCEL request for this connection's
// backend, for use when the caller holds no live Handle (e.g. an
// out-of-band abort signal).
func (c *Conn) Cancel(ctx context.Context) error {
	return c.pg.CancelRequest(ctx)
}
