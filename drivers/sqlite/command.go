package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rediwo/redi-ado/logger"
	sqltext "github.com/rediwo/redi-ado/sql"
)

// CommandType tells how Text is interpreted
type CommandType int

const (
	// CommandText is SQL text, possibly several statements
	CommandText CommandType = iota
	// TableDirect is a table name; all its rows are selected
	TableDirect
	// StoredProcedure is not supported by SQLite
	StoredProcedure
)

func (t CommandType) String() string {
	switch t {
	case TableDirect:
		return "TableDirect"
	case StoredProcedure:
		return "StoredProcedure"
	default:
		return "Text"
	}
}

// CommandBehavior flags adjust ExecuteReader
type CommandBehavior int

const (
	BehaviorDefault CommandBehavior = 0
	// SingleResult stops after the first result set
	SingleResult CommandBehavior = 1 << iota
	// SchemaOnly returns column information and no rows
	SchemaOnly
	// SingleRow returns at most one row per result set
	SingleRow
	// CloseConnection closes the connection when the reader closes
	CloseConnection
)

// Command is SQL text with parameters, executed on a connection
type Command struct {
	Text string
	Type CommandType

	// Transaction to run in. When nil the command joins the connection's
	// active transaction, if any.
	Transaction *Transaction

	// Timeout bounds each blocking call into the engine: an ExecuteNonQuery
	// or ExecuteScalar, or a single step of a reader. Zero uses the
	// connection's Default Timeout; a negative value disables the limit.
	Timeout time.Duration

	conn   *Connection
	params ParameterCollection
}

// NewCommand creates a command bound to conn
func NewCommand(conn *Connection, text string) *Command {
	return &Command{Text: text, conn: conn}
}

// Connection returns the connection the command runs on
func (cmd *Command) Connection() *Connection {
	return cmd.conn
}

// SetConnection rebinds the command
func (cmd *Command) SetConnection(conn *Connection) {
	cmd.conn = conn
}

// Parameters returns the command's parameter collection
func (cmd *Command) Parameters() *ParameterCollection {
	return &cmd.params
}

// execution is a command resolved against its connection: statements split,
// parameters bound and the executor chosen
type execution struct {
	exec    execer
	tx      *Transaction
	stmts   []sqltext.Statement
	args    [][]any
	coerce  *coercer
	log     *logger.SQLLogger
	timeout time.Duration

	// foldedDecl is set when the engine upper-cases declared types
	foldedDecl bool
}

func (cmd *Command) sqlText() (string, error) {
	switch cmd.Type {
	case CommandText:
		return cmd.Text, nil
	case TableDirect:
		name := strings.TrimSpace(cmd.Text)
		if name == "" {
			return "", nil
		}
		return fmt.Sprintf(`SELECT * FROM "%s"`, strings.ReplaceAll(name, `"`, `""`)), nil
	case StoredProcedure:
		return "", newError(KindEngine, "failed to prepare command", nil, "stored procedures are not supported")
	}
	return "", newError(KindConfiguration, "failed to prepare command", nil, "unknown command type %d", int(cmd.Type))
}

func (cmd *Command) prepare(op string) (*execution, error) {
	c := cmd.conn
	if c == nil {
		return nil, stateError(op, "command has no connection")
	}
	if cmd.Transaction != nil && cmd.Transaction.conn != c {
		return nil, stateError(op, "transaction belongs to a different connection")
	}

	text, err := cmd.sqlText()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	exec, tx, err := c.prepare(op, cmd.Transaction)
	if err != nil {
		return nil, err
	}

	stmts, err := sqltext.Split(text)
	if err != nil {
		return nil, newError(KindEngine, op, err, "")
	}
	if len(stmts) == 0 {
		return nil, stateError(op, "command text is empty")
	}

	args, err := cmd.params.bind(stmts, c.coerce)
	if err != nil {
		return nil, err
	}

	return &execution{
		exec:       exec,
		tx:         tx,
		stmts:      stmts,
		args:       args,
		coerce:     c.coerce,
		log:        c.log,
		timeout:    c.timeout(cmd.Timeout),
		foldedDecl: c.engine.FoldsDeclTypes,
	}, nil
}

// deadline bounds each blocking call into the engine rather than the life
// of the execution, so a reader may sit idle between reads. An overrun
// cancels ctx with context.DeadlineExceeded as its cause.
type deadline struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timeout time.Duration
}

func (e *execution) deadline(ctx context.Context) *deadline {
	ctx, cancel := context.WithCancelCause(ctx)
	return &deadline{ctx: ctx, cancel: cancel, timeout: e.timeout}
}

// arm starts the clock for one engine call; the returned func stops it
func (d *deadline) arm() (stop func()) {
	if d.timeout <= 0 {
		return func() {}
	}
	t := time.AfterFunc(d.timeout, func() { d.cancel(context.DeadlineExceeded) })
	return func() { t.Stop() }
}

func (d *deadline) close() {
	d.cancel(context.Canceled)
}

// fail converts an engine failure and marks the transaction, if any, Failed
func (e *execution) fail(ctx context.Context, op string, err error) error {
	if e.tx != nil {
		e.tx.markFailed()
	}
	return engineError(ctx, op, err)
}

// ExecuteNonQuery runs every statement of the command in order and returns
// the total number of rows inserted, updated or deleted
func (cmd *Command) ExecuteNonQuery(ctx context.Context) (int64, error) {
	const op = "failed to execute command"

	e, err := cmd.prepare(op)
	if err != nil {
		return 0, err
	}
	d := e.deadline(ctx)
	defer d.close()
	stop := d.arm()
	defer stop()
	ctx = d.ctx

	var total int64
	for i, stmt := range e.stmts {
		start := time.Now()
		result, err := e.exec.ExecContext(ctx, stmt.Text, e.args[i]...)
		e.log.LogSQL(stmt.Text, e.args[i], time.Since(start))
		if err != nil {
			return total, e.fail(ctx, op, err)
		}
		if !stmt.Modifies() {
			continue
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, e.fail(ctx, op, fmt.Errorf("failed to get affected rows: %w", err))
		}
		total += n
	}
	return total, nil
}

// ExecuteScalar returns the first column of the first row of the first
// result set. It returns nil when there is no row and DBNull for SQL NULL.
func (cmd *Command) ExecuteScalar(ctx context.Context) (any, error) {
	r, err := cmd.ExecuteReader(ctx, SingleResult|SingleRow)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	ok, err := r.Read()
	if err != nil || !ok || r.FieldCount() == 0 {
		return nil, err
	}
	return r.GetValue(0)
}

// ExecuteReader runs the command up to its first query and returns a reader
// positioned before the first row. Statements preceding that query are
// executed and counted in RecordsAffected.
func (cmd *Command) ExecuteReader(ctx context.Context, behavior CommandBehavior) (*Reader, error) {
	const op = "failed to execute reader"

	e, err := cmd.prepare(op)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		conn:     cmd.conn,
		e:        e,
		behavior: behavior,
		d:        e.deadline(ctx),
	}
	cmd.conn.attachReader(r)

	if _, err := r.advance(op); err != nil {
		r.closeQuietly()
		cmd.conn.releaseReader(r)
		return nil, err
	}
	return r, nil
}
