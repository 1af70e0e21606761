package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TxState is the lifecycle state of a Transaction
type TxState int

const (
	TxActive TxState = iota
	// TxFailed follows a failed command; only Rollback is allowed
	TxFailed
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxActive:
		return "Active"
	case TxFailed:
		return "Failed"
	case TxCommitted:
		return "Committed"
	case TxRolledBack:
		return "RolledBack"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// IsolationLevel of a transaction. SQLite offers serializable transactions
// and, with a shared cache, dirty reads.
type IsolationLevel int

const (
	Serializable IsolationLevel = iota
	ReadUncommitted
)

func (l IsolationLevel) String() string {
	switch l {
	case Serializable:
		return "Serializable"
	case ReadUncommitted:
		return "ReadUncommitted"
	default:
		return fmt.Sprintf("IsolationLevel(%d)", int(l))
	}
}

// Transaction is a unit of work on one connection. It reaches a terminal
// state (Committed or RolledBack) exactly once. Its state is guarded by the
// connection's mutex.
type Transaction struct {
	conn     *Connection
	tx       *sql.Tx
	level    IsolationLevel
	state    TxState
	detached bool
}

// Connection returns the owning connection
func (t *Transaction) Connection() *Connection {
	return t.conn
}

// IsolationLevel returns the level the transaction was started with
func (t *Transaction) IsolationLevel() IsolationLevel {
	return t.level
}

// State returns the lifecycle state
func (t *Transaction) State() TxState {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	return t.state
}

// setState records a transition. Caller holds conn.mu.
func (t *Transaction) setState(s TxState) {
	t.conn.log.LogState("transaction", t.state.String(), s.String())
	t.state = s
}

// markFailed moves an active transaction to Failed after a command error
func (t *Transaction) markFailed() {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	if t.state == TxActive {
		t.setState(TxFailed)
	}
}

// begin checks the transaction may end and takes the reader that has to be
// closed before it does
func (t *Transaction) begin(op string, commit bool) (*Reader, error) {
	c := t.conn
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.detached {
		return nil, stateError(op, "connection is closed")
	}
	switch {
	case t.state == TxActive:
	case t.state == TxFailed && !commit:
	case t.state == TxFailed:
		return nil, stateError(op, "transaction has failed and must be rolled back")
	default:
		return nil, stateError(op, "transaction is already %s", t.state)
	}
	if c.state != StateOpen {
		return nil, stateError(op, "connection is %s", c.state)
	}

	r := c.reader
	c.reader = nil
	return r, nil
}

// Commit persists the transaction's changes. An open reader is closed first.
func (t *Transaction) Commit() error {
	const op = "failed to commit transaction"

	r, err := t.begin(op, true)
	if err != nil {
		return err
	}
	if r != nil {
		r.closeQuietly()
	}

	if err := t.tx.Commit(); err != nil {
		t.conn.mu.Lock()
		// database/sql discards the transaction even when COMMIT fails, but
		// SQLite may still hold it open on the session
		t.setState(TxRolledBack)
		session := t.conn.session
		t.conn.mu.Unlock()
		if session != nil {
			session.ExecContext(context.Background(), "ROLLBACK")
		}
		t.finish()
		return newError(KindEngine, op, err, "")
	}

	t.conn.mu.Lock()
	t.setState(TxCommitted)
	t.conn.mu.Unlock()
	t.finish()
	return nil
}

// Rollback discards the transaction's changes. It is the only way out of
// the Failed state.
func (t *Transaction) Rollback() error {
	const op = "failed to roll back transaction"

	r, err := t.begin(op, false)
	if err != nil {
		return err
	}
	if r != nil {
		r.closeQuietly()
	}

	err = t.tx.Rollback()
	t.conn.mu.Lock()
	t.setState(TxRolledBack)
	t.conn.mu.Unlock()
	t.finish()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return newError(KindEngine, op, err, "")
	}
	return nil
}

// Close rolls back a transaction that was neither committed nor rolled
// back, and does nothing otherwise
func (t *Transaction) Close() error {
	t.conn.mu.Lock()
	pending := !t.detached && (t.state == TxActive || t.state == TxFailed)
	t.conn.mu.Unlock()

	if !pending {
		return nil
	}
	return t.Rollback()
}

func (t *Transaction) finish() {
	c := t.conn
	c.mu.Lock()
	if c.tx == t {
		c.tx = nil
	}
	session := c.session
	c.mu.Unlock()

	if t.level == ReadUncommitted && session != nil {
		session.ExecContext(context.Background(), "PRAGMA read_uncommitted = 0")
	}
}

// detach is called by Connection.Close after it released conn.mu: the
// transaction is rolled back and every later call reports the closed
// connection
func (t *Transaction) detach() error {
	c := t.conn
	c.mu.Lock()
	t.detached = true
	pending := t.state == TxActive || t.state == TxFailed
	if pending {
		t.setState(TxRolledBack)
	}
	c.mu.Unlock()

	if !pending {
		return nil
	}
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}
