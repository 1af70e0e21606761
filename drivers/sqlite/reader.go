package sqlite

import (
	"database/sql"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rediwo/redi-ado/utils"
)

// ReaderState is the cursor position of a Reader
type ReaderState int

const (
	ReaderBeforeFirst ReaderState = iota
	ReaderPositioned
	ReaderExhausted
	ReaderClosed
)

func (s ReaderState) String() string {
	switch s {
	case ReaderBeforeFirst:
		return "BeforeFirst"
	case ReaderPositioned:
		return "Positioned"
	case ReaderExhausted:
		return "Exhausted"
	default:
		return "Closed"
	}
}

type column struct {
	name string
	decl string
	ft   FieldType
}

// Reader is a forward-only cursor over the result sets of a command.
// The schema of the current result set stays available after the last row.
type Reader struct {
	conn     *Connection
	e        *execution
	behavior CommandBehavior
	d        *deadline

	next            int
	rows            *sql.Rows
	columns         []column
	current         []any
	rowsRead        int
	state           ReaderState
	detached        bool
	recordsAffected int64

	// spellings maps upper-cased declared types to their schema spelling
	spellings map[string]string
}

func (r *Reader) setState(s ReaderState) {
	if r.state != s {
		r.e.log.LogState("reader", r.state.String(), s.String())
	}
	r.state = s
}

// advance executes statements until the next query and opens its rows
func (r *Reader) advance(op string) (bool, error) {
	schemaOnly := r.behavior&SchemaOnly != 0
	for r.next < len(r.e.stmts) {
		i := r.next
		stmt := r.e.stmts[i]
		r.next++

		if !stmt.IsQuery() {
			if schemaOnly {
				continue
			}
			if err := r.exec(op, stmt.Text, r.e.args[i], stmt.Modifies()); err != nil {
				return false, err
			}
			continue
		}

		if schemaOnly && stmt.Modifies() {
			return true, r.describe(op, i)
		}
		return true, r.open(op, i)
	}
	return false, nil
}

// exec runs one non-query statement under the step deadline
func (r *Reader) exec(op, text string, args []any, count bool) error {
	stop := r.d.arm()
	start := time.Now()
	result, err := r.e.exec.ExecContext(r.d.ctx, text, args...)
	stop()
	r.e.log.LogSQL(text, args, time.Since(start))
	if err != nil {
		return r.e.fail(r.d.ctx, op, err)
	}
	if count {
		if n, err := result.RowsAffected(); err == nil {
			r.recordsAffected += n
		}
	}
	return nil
}

// open runs statement i and makes its rows the current result set
func (r *Reader) open(op string, i int) error {
	stmt := r.e.stmts[i]

	stop := r.d.arm()
	start := time.Now()
	rows, err := r.e.exec.QueryContext(r.d.ctx, stmt.Text, r.e.args[i]...)
	stop()
	r.e.log.LogSQL(stmt.Text, r.e.args[i], time.Since(start))
	if err != nil {
		return r.e.fail(r.d.ctx, op, err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return r.e.fail(r.d.ctx, op, err)
	}

	r.columns = make([]column, len(types))
	for j, ct := range types {
		decl := ct.DatabaseTypeName()
		r.columns[j] = column{name: ct.Name(), decl: decl, ft: declaredFieldType(decl)}
	}
	r.rows = rows
	r.current = nil
	r.rowsRead = 0
	r.setState(ReaderBeforeFirst)
	return nil
}

const schemaSavepoint = "redi_ado_schema_only"

// describe reads the columns of a data-modifying query and discards its
// effects by rolling back to a savepoint taken just before it
func (r *Reader) describe(op string, i int) error {
	if err := r.exec(op, "SAVEPOINT "+schemaSavepoint, nil, false); err != nil {
		return err
	}
	err := r.open(op, i)
	r.closeRows()

	for _, undo := range []string{"ROLLBACK TO " + schemaSavepoint, "RELEASE " + schemaSavepoint} {
		if undoErr := r.exec(op, undo, nil, false); undoErr != nil && err == nil {
			err = undoErr
		}
	}
	return err
}

func (r *Reader) checkOpen(op string) error {
	if r.detached {
		return stateError(op, "connection is closed")
	}
	if r.state == ReaderClosed {
		return newError(KindEngine, op, nil, "reader is closed")
	}
	return nil
}

// Read advances to the next row. It returns false once the result set is
// exhausted, and keeps returning false after that.
func (r *Reader) Read() (bool, error) {
	const op = "failed to read row"

	if err := r.checkOpen(op); err != nil {
		return false, err
	}
	if r.state == ReaderExhausted {
		return false, nil
	}

	if r.rows == nil || r.behavior&SchemaOnly != 0 || (r.behavior&SingleRow != 0 && r.rowsRead > 0) {
		r.exhaust()
		return false, nil
	}

	stop := r.d.arm()
	next := r.rows.Next()
	stop()
	if !next {
		err := r.rows.Err()
		r.exhaust()
		if err != nil {
			return false, r.e.fail(r.d.ctx, op, err)
		}
		return false, nil
	}

	values := make([]any, len(r.columns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		r.exhaust()
		return false, r.e.fail(r.d.ctx, op, err)
	}

	r.current = values
	r.rowsRead++
	r.setState(ReaderPositioned)
	return true, nil
}

func (r *Reader) exhaust() {
	r.closeRows()
	r.current = nil
	r.setState(ReaderExhausted)
}

// NextResult moves to the result set of the next query in the command text,
// executing the statements in between. It returns false when there is none.
func (r *Reader) NextResult() (bool, error) {
	const op = "failed to advance result"

	if err := r.checkOpen(op); err != nil {
		return false, err
	}

	r.closeRows()
	r.current = nil
	if r.behavior&SingleResult != 0 {
		r.next = len(r.e.stmts)
	}

	ok, err := r.advance(op)
	if err != nil || !ok {
		r.setState(ReaderExhausted)
		return false, err
	}
	return true, nil
}

// Close releases the rows. With CloseConnection it also closes the
// connection. Close may be called more than once.
func (r *Reader) Close() error {
	if r.state == ReaderClosed {
		return nil
	}
	r.closeQuietly()
	if r.detached {
		return nil
	}

	r.conn.releaseReader(r)
	if r.behavior&CloseConnection != 0 {
		return r.conn.Close()
	}
	return nil
}

// IsClosed reports whether Close was called or the connection closed
func (r *Reader) IsClosed() bool {
	return r.state == ReaderClosed
}

// State returns the cursor position
func (r *Reader) State() ReaderState {
	return r.state
}

// RecordsAffected is the number of rows changed by the statements executed
// so far
func (r *Reader) RecordsAffected() int64 {
	return r.recordsAffected
}

func (r *Reader) closeRows() {
	if r.rows != nil {
		r.rows.Close()
		r.rows = nil
	}
}

// closeQuietly closes the reader without touching its connection
func (r *Reader) closeQuietly() {
	r.closeRows()
	r.current = nil
	r.d.close()
	r.setState(ReaderClosed)
}

// detach is called when the connection closes under the reader
func (r *Reader) detach() {
	r.closeQuietly()
	r.detached = true
}

// FieldCount is the number of columns in the current result set
func (r *Reader) FieldCount() int {
	return len(r.columns)
}

func (r *Reader) column(op string, ordinal int) (column, error) {
	if ordinal < 0 || ordinal >= len(r.columns) {
		return column{}, newError(KindIndex, op, nil, "ordinal %d out of range [0,%d)", ordinal, len(r.columns))
	}
	return r.columns[ordinal], nil
}

// GetName returns the name of a column
func (r *Reader) GetName(ordinal int) (string, error) {
	col, err := r.column("failed to get column name", ordinal)
	return col.name, err
}

// GetOrdinal finds a column by name, ignoring case. With duplicate names
// the first column wins.
func (r *Reader) GetOrdinal(name string) (int, error) {
	for i, col := range r.columns {
		if strings.EqualFold(col.name, name) {
			return i, nil
		}
	}
	return -1, newError(KindIndex, "failed to get column ordinal", nil, "no column named %q", name)
}

// GetDataTypeName returns the declared type of a column, upper case. For
// expressions it names the storage class of the current value.
func (r *Reader) GetDataTypeName(ordinal int) (string, error) {
	col, err := r.column("failed to get data type name", ordinal)
	if err != nil {
		return "", err
	}
	if col.decl != "" {
		return r.declSpelling(col.decl), nil
	}
	return storageName(r.currentValue(ordinal)), nil
}

// declSpellingQuery lists every declared column type in the schema as written
const declSpellingQuery = `SELECT DISTINCT p.type FROM sqlite_schema AS s, pragma_table_xinfo(s.name) AS p ` +
	`WHERE s.type IN ('table', 'view') AND p.type <> ''`

// declSpelling restores the schema spelling of a declared type the engine
// reported upper-cased. The schema is read once per reader; when it cannot
// be read the engine's spelling is kept.
func (r *Reader) declSpelling(decl string) string {
	if !r.e.foldedDecl {
		return decl
	}
	if r.spellings == nil {
		r.spellings = make(map[string]string)
		if !r.detached && r.state != ReaderClosed {
			r.loadSpellings()
		}
	}
	if s, ok := r.spellings[decl]; ok {
		return s
	}
	return decl
}

func (r *Reader) loadSpellings() {
	stop := r.d.arm()
	defer stop()

	start := time.Now()
	rows, err := r.e.exec.QueryContext(r.d.ctx, declSpellingQuery)
	r.e.log.LogSQL(declSpellingQuery, nil, time.Since(start))
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var spelling string
		if rows.Scan(&spelling) != nil {
			return
		}
		key := strings.ToUpper(spelling)
		if _, seen := r.spellings[key]; !seen {
			r.spellings[key] = spelling
		}
	}
}

func storageName(v any) string {
	switch v.(type) {
	case int64, bool:
		return "INTEGER"
	case float64:
		return "REAL"
	case string, time.Time:
		return "TEXT"
	case []byte:
		return "BLOB"
	default:
		return "NULL"
	}
}

// GetFieldType returns the Go type GetValue produces for a column
func (r *Reader) GetFieldType(ordinal int) (reflect.Type, error) {
	ft, err := r.fieldType("failed to get field type", ordinal)
	if err != nil {
		return nil, err
	}
	return ft.GoType(), nil
}

func (r *Reader) fieldType(op string, ordinal int) (FieldType, error) {
	col, err := r.column(op, ordinal)
	if err != nil {
		return FieldAny, err
	}
	if col.ft != FieldAny {
		return col.ft, nil
	}
	return storageFieldType(r.currentValue(ordinal)), nil
}

func (r *Reader) currentValue(ordinal int) any {
	if ordinal < len(r.current) {
		return r.current[ordinal]
	}
	return nil
}

// raw returns the engine value of a column in the current row
func (r *Reader) raw(op string, ordinal int) (any, error) {
	if r.detached {
		return nil, stateError(op, "connection is closed")
	}
	if r.state != ReaderPositioned {
		return nil, stateError(op, "no current row (reader is %s)", r.state)
	}
	if _, err := r.column(op, ordinal); err != nil {
		return nil, err
	}
	return r.current[ordinal], nil
}

// nonNull is raw for the typed getters, which cannot represent NULL
func (r *Reader) nonNull(op string, ordinal int) (any, error) {
	v, err := r.raw(op, ordinal)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, newError(KindFormat, op, nil, "column %d is NULL", ordinal)
	}
	return v, nil
}

// GetValue returns a column of the current row converted to its field
// type, or DBNull
func (r *Reader) GetValue(ordinal int) (any, error) {
	const op = "failed to get value"
	v, err := r.raw(op, ordinal)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return DBNull, nil
	}
	return r.e.coerce.value(v, r.columns[ordinal].ft)
}

// GetValueByName is GetValue with a case-insensitive column name
func (r *Reader) GetValueByName(name string) (any, error) {
	i, err := r.GetOrdinal(name)
	if err != nil {
		return nil, err
	}
	return r.GetValue(i)
}

// IsDBNull reports whether a column of the current row is NULL
func (r *Reader) IsDBNull(ordinal int) (bool, error) {
	v, err := r.raw("failed to check for NULL", ordinal)
	return v == nil, err
}

func (r *Reader) GetInt64(ordinal int) (int64, error) {
	const op = "failed to get int64"
	v, err := r.nonNull(op, ordinal)
	if err != nil {
		return 0, err
	}
	n, err := utils.ToInt64(v)
	if err != nil {
		return 0, newError(KindFormat, op, err, "")
	}
	return n, nil
}

func (r *Reader) GetInt32(ordinal int) (int32, error) {
	const op = "failed to get int32"
	v, err := r.nonNull(op, ordinal)
	if err != nil {
		return 0, err
	}
	n, err := utils.ToInt32(v)
	if err != nil {
		return 0, newError(KindFormat, op, err, "")
	}
	return n, nil
}

func (r *Reader) GetFloat64(ordinal int) (float64, error) {
	const op = "failed to get float64"
	v, err := r.nonNull(op, ordinal)
	if err != nil {
		return 0, err
	}
	f, err := utils.ToFloat64(v)
	if err != nil {
		return 0, newError(KindFormat, op, err, "")
	}
	return f, nil
}

func (r *Reader) GetBool(ordinal int) (bool, error) {
	const op = "failed to get bool"
	v, err := r.nonNull(op, ordinal)
	if err != nil {
		return false, err
	}
	b, err := utils.ToBool(v)
	if err != nil {
		return false, newError(KindFormat, op, err, "")
	}
	return b, nil
}

func (r *Reader) GetString(ordinal int) (string, error) {
	v, err := r.nonNull("failed to get string", ordinal)
	if err != nil {
		return "", err
	}
	return r.e.coerce.text(v), nil
}

func (r *Reader) GetBytes(ordinal int) ([]byte, error) {
	const op = "failed to get bytes"
	v, err := r.nonNull(op, ordinal)
	if err != nil {
		return nil, err
	}
	b, err := utils.ToBytes(v)
	if err != nil {
		return nil, newError(KindFormat, op, err, "")
	}
	return b, nil
}

// GetDateTime reads a column as a time under the connection's DateTimeFormat
func (r *Reader) GetDateTime(ordinal int) (time.Time, error) {
	v, err := r.nonNull("failed to get date/time", ordinal)
	if err != nil {
		return time.Time{}, err
	}
	return r.e.coerce.toTime(v)
}

// GetGUID reads a 16-byte blob or a textual UUID
func (r *Reader) GetGUID(ordinal int) (uuid.UUID, error) {
	v, err := r.nonNull("failed to get GUID", ordinal)
	if err != nil {
		return uuid.Nil, err
	}
	return r.e.coerce.toGUID(v)
}
