package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rediwo/redi-ado/connstr"
	"github.com/rediwo/redi-ado/logger"
	"github.com/rediwo/redi-ado/registry"
)

// ConnectionState is the lifecycle state of a Connection
type ConnectionState int

const (
	StateClosed ConnectionState = iota
	StateConnecting
	StateOpen
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	default:
		return "Closed"
	}
}

// execer is satisfied by both the session and an active transaction
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Connection owns one SQLite session. It is not safe for concurrent use by
// several goroutines; the mutex only keeps state reads consistent.
type Connection struct {
	mu         sync.Mutex
	connString string
	opts       connstr.Options
	engine     registry.Engine
	state      ConnectionState
	db         *sql.DB
	session    *sql.Conn
	coerce     *coercer
	reader     *Reader
	tx         *Transaction
	log        *logger.SQLLogger
}

// NewConnection creates a closed connection for the given connection string
func NewConnection(connString string) *Connection {
	return &Connection{
		connString: connString,
		log:        logger.NewSQLLogger(logger.GetGlobalLogger()),
	}
}

// Open parses the connection string and opens a session. On failure the
// connection stays Closed with nothing left allocated.
func Open(ctx context.Context, connString string) (*Connection, error) {
	c := NewConnection(connString)
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// SetLogger replaces the logger used for statements and state changes
func (c *Connection) SetLogger(l logger.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = logger.NewSQLLogger(l)
}

// ConnectionString returns the raw connection string
func (c *Connection) ConnectionString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connString
}

// SetConnectionString replaces the connection string. The connection must
// be closed; the new string is parsed on the next Open.
func (c *Connection) SetConnectionString(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		return stateError("failed to set connection string", "connection is %s", c.state)
	}
	c.connString = s
	return nil
}

// Options parses the current connection string
func (c *Connection) Options() (connstr.Options, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateOpen {
		return c.opts, nil
	}
	opts, err := connstr.Parse(c.connString)
	if err != nil {
		return connstr.Options{}, newError(KindConfiguration, "failed to parse connection string", err, "")
	}
	return opts, nil
}

// DataSource returns the database path (or ":memory:") of the connection string
func (c *Connection) DataSource() (string, error) {
	opts, err := c.Options()
	if err != nil {
		return "", err
	}
	return opts.DataSource, nil
}

// State returns the lifecycle state
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s ConnectionState) {
	c.log.LogState("connection", c.state.String(), s.String())
	c.state = s
}

// Open opens the session. The connection must be Closed.
func (c *Connection) Open(ctx context.Context) error {
	const op = "failed to open connection"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateClosed {
		return stateError(op, "connection is already %s", c.state)
	}

	opts, err := connstr.Parse(c.connString)
	if err != nil {
		return newError(KindConfiguration, op, err, "")
	}
	engine, err := registry.Get(opts.Engine)
	if err != nil {
		return newError(KindConfiguration, op, err, "")
	}
	// Such an engine has already turned integer storage into times, so only
	// the mode that reads integers as Unix seconds can be honored.
	if engine.IntegerTimestamps && opts.DateTimeFormat != connstr.UnixEpoch {
		return newError(KindConfiguration, op, nil,
			"engine %s requires DateTimeFormat=%s, got %s", engine.Name, connstr.UnixEpoch, opts.DateTimeFormat)
	}
	if err := checkDataSource(opts); err != nil {
		return err
	}

	c.setState(StateConnecting)
	db, session, err := c.connect(ctx, engine, opts)
	if err != nil {
		c.setState(StateClosed)
		return err
	}

	c.opts = opts
	c.engine = engine
	c.db = db
	c.session = session
	c.coerce = newCoercer(opts)
	c.coerce.driverTimes = engine.IntegerTimestamps
	c.setState(StateOpen)
	return nil
}

func checkDataSource(opts connstr.Options) error {
	const op = "failed to open connection"
	if opts.IsMemory() {
		return nil
	}

	_, err := os.Stat(opts.DataSource)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return newError(KindResourceNotFound, op, err, "")
	case opts.FailIfMissing:
		return newError(KindResourceNotFound, op, err, "database file %s does not exist", opts.DataSource)
	}

	dir := filepath.Dir(opts.DataSource)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return newError(KindResourceNotFound, op, err, "directory %s does not exist", dir)
	}
	return nil
}

func (c *Connection) connect(ctx context.Context, engine registry.Engine, opts connstr.Options) (*sql.DB, *sql.Conn, error) {
	const op = "failed to open connection"

	db, err := sql.Open(engine.DriverName, engine.DSN(opts))
	if err != nil {
		return nil, nil, newError(KindEngine, op, err, "")
	}
	// one session per connection; the pool never grows or recycles it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	session, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, nil, engineError(ctx, op, err)
	}

	for _, pragma := range pragmasFor(opts) {
		start := time.Now()
		if _, err := session.ExecContext(ctx, pragma); err != nil {
			session.Close()
			db.Close()
			return nil, nil, engineError(ctx, op, fmt.Errorf("failed to apply %s: %w", pragma, err))
		}
		c.log.LogSQL(pragma, nil, time.Since(start))
	}
	return db, session, nil
}

// pragmasFor returns the session settings implied by the options, in the
// order SQLite needs them (page_size must precede any journal change).
// Busy timeout and foreign keys travel in the engine's DSN.
func pragmasFor(opts connstr.Options) []string {
	var pragmas []string
	if opts.PageSize > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA page_size = %d", opts.PageSize))
	}
	if opts.JournalMode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+opts.JournalMode)
	}
	if opts.Synchronous != "" {
		pragmas = append(pragmas, "PRAGMA synchronous = "+opts.Synchronous)
	}
	if opts.CacheSize != 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size = %d", opts.CacheSize))
	}
	if opts.ReadOnly {
		pragmas = append(pragmas, "PRAGMA query_only = ON")
	}
	return pragmas
}

// Close releases the session. It detaches an open reader, rolls back an
// unfinished transaction and may be called any number of times.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	reader, tx, session, db := c.reader, c.tx, c.session, c.db
	c.reader, c.tx, c.session, c.db = nil, nil, nil, nil
	c.setState(StateClosed)
	c.mu.Unlock()

	// rows and the transaction hold the session; release them first
	var errs []error
	if reader != nil {
		reader.detach()
	}
	if tx != nil {
		if err := tx.detach(); err != nil {
			errs = append(errs, err)
		}
	}
	if session != nil {
		if err := session.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return newError(KindEngine, "failed to close connection", err, "")
	}
	return nil
}

// CreateCommand returns a command bound to this connection
func (c *Connection) CreateCommand() *Command {
	return NewCommand(c, "")
}

// BeginTransaction starts a serializable transaction
func (c *Connection) BeginTransaction(ctx context.Context) (*Transaction, error) {
	return c.BeginTransactionWithIsolation(ctx, Serializable)
}

// BeginTransactionWithIsolation starts a transaction. Only one transaction
// may be unfinished per connection; nesting is rejected.
func (c *Connection) BeginTransactionWithIsolation(ctx context.Context, level IsolationLevel) (*Transaction, error) {
	const op = "failed to begin transaction"

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkReady(op); err != nil {
		return nil, err
	}
	if c.tx != nil {
		return nil, stateError(op, "connection already has a %s transaction", c.tx.state)
	}
	if level != Serializable && level != ReadUncommitted {
		return nil, newError(KindConfiguration, op, nil, "unsupported isolation level %s", level)
	}

	if level == ReadUncommitted {
		if _, err := c.session.ExecContext(ctx, "PRAGMA read_uncommitted = 1"); err != nil {
			return nil, engineError(ctx, op, err)
		}
	}

	// the transaction outlives the call; only Commit/Rollback end it
	sqlTx, err := c.session.BeginTx(context.WithoutCancel(ctx), &sql.TxOptions{})
	if err != nil {
		if level == ReadUncommitted {
			c.session.ExecContext(ctx, "PRAGMA read_uncommitted = 0")
		}
		return nil, engineError(ctx, op, err)
	}

	tx := &Transaction{conn: c, tx: sqlTx, level: level, state: TxActive}
	c.tx = tx
	c.log.LogState("transaction", "None", tx.state.String())
	return tx, nil
}

// WithTransaction runs fn in a transaction that is committed when fn returns
// nil and rolled back when it returns an error or panics
func (c *Connection) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) (err error) {
	tx, err := c.BeginTransaction(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %w", err, rollbackErr)
		}
		return err
	}

	return tx.Commit()
}

// ServerVersion returns the SQLite library version of the session
func (c *Connection) ServerVersion(ctx context.Context) (string, error) {
	const op = "failed to query server version"

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkReady(op); err != nil {
		return "", err
	}

	var version string
	if err := c.executor().QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return "", engineError(ctx, op, err)
	}
	return version, nil
}

// checkReady verifies the session can run a statement. Caller holds mu.
func (c *Connection) checkReady(op string) error {
	if c.state != StateOpen {
		return stateError(op, "connection is %s", c.state)
	}
	if c.reader != nil {
		return stateError(op, "a reader is open on the connection")
	}
	return nil
}

type rowExecer interface {
	execer
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// executor returns the active transaction if there is one. Caller holds mu.
func (c *Connection) executor() rowExecer {
	if c.tx != nil && c.tx.tx != nil {
		return c.tx.tx
	}
	return c.session
}

// prepare resolves everything a command needs to run. Caller holds mu.
func (c *Connection) prepare(op string, tx *Transaction) (rowExecer, *Transaction, error) {
	if err := c.checkReady(op); err != nil {
		return nil, nil, err
	}
	if tx == nil {
		tx = c.tx
	}
	if tx == nil {
		return c.session, nil, nil
	}
	if tx.conn != c {
		return nil, nil, stateError(op, "transaction belongs to a different connection")
	}
	if tx != c.tx {
		return nil, nil, stateError(op, "transaction is %s", tx.state)
	}
	switch tx.state {
	case TxActive:
		return tx.tx, tx, nil
	case TxFailed:
		return nil, nil, stateError(op, "transaction has failed and must be rolled back")
	default:
		return nil, nil, stateError(op, "transaction is %s", tx.state)
	}
}

func (c *Connection) timeout(d time.Duration) time.Duration {
	if d != 0 {
		return d
	}
	return c.opts.DefaultTimeout
}

func (c *Connection) attachReader(r *Reader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reader = r
}

func (c *Connection) releaseReader(r *Reader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == r {
		c.reader = nil
	}
}
