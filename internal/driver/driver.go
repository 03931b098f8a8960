// Package driver implements a database/sql driver for tinycol.
//
// What: A driver that exposes the in-memory engine through the standard
// database/sql interfaces. Databases are named (mem://name) and shared by
// every connection that opens the same name; an empty name creates a private
// database per sql.DB.
// How: A small server wrapper owns a tinycol.DB and throttles access through
// reader and writer pools with a busy timeout. Placeholders (?, $n, :n) are
// bound by string substitution with proper literal escaping.
// Why: Integrating with database/sql enables familiar APIs and tooling while
// the engine itself stays a plain Go API.
package driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/tinycol"
	"github.com/SimonWaldherr/tinycol/internal/config"
	"github.com/SimonWaldherr/tinycol/internal/logging"
)

// DriverName is the name registered with database/sql.
const DriverName = "tinycol"

// init registers the driver so sql.Open("tinycol", dsn) works out of the box.
// Supported DSNs:
//   - "" or mem:// for a private database
//   - mem://name?pool_readers=4&pool_writers=1&busy_timeout=250ms&intern_text=1
//   - mem://name?config=/etc/tinycol.yml (file values, then DSN overrides)
//
// See parseDSN for all available options.
var defaultDrv = &drv{}

func init() {
	sql.Register(DriverName, defaultDrv)
}

var (
	registryMu sync.Mutex
	registry   = map[string]*server{}
)

// OpenInMemory returns a *sql.DB backed by the named in-memory database. An
// empty name gives a private database.
func OpenInMemory(name string) (*sql.DB, error) {
	return sql.Open(DriverName, "mem://"+url.PathEscape(name))
}

// Forget removes a named database from the registry. Open sql.DB handles
// keep working on it; new opens of the name get a fresh database.
func Forget(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Embedded returns the tinycol.DB behind a database/sql handle opened with
// this driver. Statements run on it bypass the reader/writer pools.
func Embedded(ctx context.Context, db *sql.DB) (*tinycol.DB, error) {
	c, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	var out *tinycol.DB
	err = c.Raw(func(dc any) error {
		cn, ok := dc.(*conn)
		if !ok {
			return fmt.Errorf("tinycol: %T is not a %s connection", dc, DriverName)
		}
		out = cn.srv.db
		return nil
	})
	return out, err
}

// cfg stores the connection parameters derived from a parsed DSN.
type cfg struct {
	name        string
	maxReaders  int
	maxWriters  int
	busyTimeout time.Duration
	intern      bool
}

func cfgFromConfig(c config.Config) cfg {
	return cfg{
		maxReaders:  c.Driver.MaxReaders,
		maxWriters:  c.Driver.MaxWriters,
		busyTimeout: c.Driver.BusyTimeout.Std(),
		intern:      c.Text.Intern,
	}
}

// parseDSN parses a tinycol DSN into a driver configuration. A config file
// named by the config option is applied first, so the remaining options
// override it regardless of their order.
func parseDSN(dsn string) (cfg, error) {
	c := cfgFromConfig(config.Default())
	if dsn == "" {
		return c, nil
	}
	if !strings.HasPrefix(dsn, "mem://") {
		return c, fmt.Errorf("tinycol: unsupported DSN %q", dsn)
	}
	rest := strings.TrimPrefix(dsn, "mem://")
	q := ""
	if i := strings.Index(rest, "?"); i >= 0 {
		rest, q = rest[:i], rest[i+1:]
	}
	name, err := url.PathUnescape(rest)
	if err != nil {
		return c, fmt.Errorf("tinycol: invalid database name %q: %w", rest, err)
	}
	values, err := url.ParseQuery(q)
	if err != nil {
		return c, fmt.Errorf("tinycol: invalid DSN options: %w", err)
	}
	if path := values.Get("config"); path != "" {
		fc, err := config.Load(path)
		if err != nil {
			return c, fmt.Errorf("tinycol: %w", err)
		}
		c = cfgFromConfig(fc)
	}
	c.name = name
	for k, vs := range values {
		if k == "config" {
			continue
		}
		if err := applyDSNOption(&c, k, vs[len(vs)-1]); err != nil {
			return c, err
		}
	}
	return c, nil
}

// server coordinates access to one tinycol.DB and throttles connections
// through reader and writer pools.
type server struct {
	db          *tinycol.DB
	readerPool  chan struct{}
	writerPool  chan struct{}
	busyTimeout time.Duration
	log         *slog.Logger
}

func newServer(c cfg) *server {
	db := tinycol.New(tinycol.WithTextInterning(c.intern))
	s := &server{
		db:          db,
		busyTimeout: c.busyTimeout,
		log:         logging.Logger().With("component", "driver", "name", c.name, "db", db.ID().String()),
	}
	if c.maxReaders > 0 {
		s.readerPool = make(chan struct{}, c.maxReaders)
	}
	if c.maxWriters > 0 {
		s.writerPool = make(chan struct{}, c.maxWriters)
	}
	return s
}

// lookupServer returns the shared server for a named database, creating it
// on first use. The options of the first open win. Unnamed databases get a
// fresh uuid name and are not registered.
func lookupServer(c cfg) *server {
	if c.name == "" {
		c.name = uuid.NewString()
		return newServer(c)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if s, ok := registry[c.name]; ok {
		return s
	}
	s := newServer(c)
	registry[c.name] = s
	s.log.Info("database created")
	return s
}

func (s *server) acquireReader(ctx context.Context) error { return s.acquire(ctx, s.readerPool) }
func (s *server) releaseReader()                          { s.release(s.readerPool) }
func (s *server) acquireWriter(ctx context.Context) error { return s.acquire(ctx, s.writerPool) }
func (s *server) releaseWriter()                          { s.release(s.writerPool) }

//nolint:gocyclo // Connection throttling must cover timeout, context, and immediate acquisition paths.
func (s *server) acquire(ctx context.Context, pool chan struct{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if pool == nil {
		return ctx.Err()
	}
	if s.busyTimeout <= 0 {
		select {
		case pool <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	timeout := s.busyTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remain := time.Until(deadline)
		if remain <= 0 {
			return ctx.Err()
		}
		if remain < timeout {
			timeout = remain
		}
	}
	select {
	case pool <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case pool <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		s.log.Warn("busy timeout", "timeout", timeout)
		return fmt.Errorf("tinycol: busy timeout after %s", timeout)
	}
}

func (s *server) release(pool chan struct{}) {
	if pool == nil {
		return
	}
	select {
	case <-pool:
	default:
	}
}

// ------------------- driver / connector -------------------

type drv struct{}

// Open implements driver.Driver. database/sql prefers OpenConnector, which
// keeps one private database per sql.DB; Open is only used by callers that
// bypass it.
func (d *drv) Open(name string) (driver.Conn, error) {
	c, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

// OpenConnector implements driver.DriverContext.
func (d *drv) OpenConnector(name string) (driver.Connector, error) {
	c, err := parseDSN(name)
	if err != nil {
		return nil, err
	}
	return &connector{srv: lookupServer(c), drv: d}, nil
}

type connector struct {
	srv *server
	drv *drv
}

func (c *connector) Connect(context.Context) (driver.Conn, error) { return &conn{srv: c.srv}, nil }
func (c *connector) Driver() driver.Driver                        { return c.drv }

// ------------------- connection -------------------

type conn struct {
	srv    *server
	closed bool
}

// errNoTx is returned by Begin: the engine has no transactions and every
// statement commits on its own.
var errNoTx = errors.New("tinycol: transactions are not supported")

func (c *conn) Prepare(query string) (driver.Stmt, error) { return &stmt{c: c, sql: query}, nil }
func (c *conn) Close() error                              { c.closed = true; return nil }
func (c *conn) Begin() (driver.Tx, error)                 { return nil, errNoTx }

func (c *conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) { return nil, errNoTx }

// Ping implements driver.Pinger so database/sql can health-check the connection.
func (c *conn) Ping(ctx context.Context) error {
	if c.closed {
		return driver.ErrBadConn
	}
	if err := c.srv.acquireReader(ctx); err != nil {
		return err
	}
	c.srv.releaseReader()
	return nil
}

// ------------------- exec / query -------------------

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	sqlStr, err := bindPlaceholders(query, args)
	if err != nil {
		return nil, err
	}
	return c.execSQL(ctx, sqlStr)
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	sqlStr, err := bindPlaceholders(query, args)
	if err != nil {
		return nil, err
	}
	return c.querySQL(ctx, sqlStr)
}

func (c *conn) execSQL(ctx context.Context, sqlStr string) (driver.Result, error) {
	st, err := tinycol.Parse(sqlStr)
	if err != nil {
		return nil, err
	}
	if isSelect(st) {
		if _, err := c.runQuery(ctx, st); err != nil {
			return nil, err
		}
		return result(0), nil
	}
	return c.runExec(ctx, st)
}

// querySQL returns rows for a SELECT. Other statements are executed and
// yield an empty result set.
func (c *conn) querySQL(ctx context.Context, sqlStr string) (driver.Rows, error) {
	st, err := tinycol.Parse(sqlStr)
	if err != nil {
		return nil, err
	}
	if !isSelect(st) {
		if _, err := c.runExec(ctx, st); err != nil {
			return nil, err
		}
		return emptyRows{}, nil
	}
	rs, err := c.runQuery(ctx, st)
	if err != nil {
		return nil, err
	}
	return &rows{rs: rs}, nil
}

func (c *conn) runExec(ctx context.Context, st tinycol.Statement) (driver.Result, error) {
	if err := c.srv.acquireWriter(ctx); err != nil {
		return nil, err
	}
	defer c.srv.releaseWriter()
	out, err := c.srv.db.ExecuteStatement(st)
	if err != nil {
		return nil, err
	}
	return result(out.RowsAffected), nil
}

func (c *conn) runQuery(ctx context.Context, st tinycol.Statement) (*tinycol.ResultSet, error) {
	if err := c.srv.acquireReader(ctx); err != nil {
		return nil, err
	}
	defer c.srv.releaseReader()
	return c.srv.db.QueryStatement(st)
}

func isSelect(st tinycol.Statement) bool { return tinycol.ReturnsRows(st) }

// CheckNamedValue normalizes Go values into the types sqlLiteral accepts.
func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	switch v := nv.Value.(type) {
	case time.Time:
		nv.Value = v.UTC().Format(time.RFC3339Nano)
	case []byte:
		nv.Value = string(v)
	case int:
		nv.Value = int64(v)
	case int32:
		nv.Value = int64(v)
	case float32:
		nv.Value = float64(v)
	case nil, int64, float64, bool, string:
	default:
		conv, err := driver.DefaultParameterConverter.ConvertValue(v)
		if err != nil {
			return err
		}
		nv.Value = conv
		return c.CheckNamedValue(nv)
	}
	return nil
}

type result int64

func (r result) LastInsertId() (int64, error) {
	return 0, errors.New("tinycol: LastInsertId is not supported")
}
func (r result) RowsAffected() (int64, error) { return int64(r), nil }

// ------------------- stmt / rows -------------------

type stmt struct {
	c   *conn
	sql string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.c.ExecContext(ctx, s.sql, args)
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.c.QueryContext(ctx, s.sql, args)
}

func namedValues(args []driver.Value) []driver.NamedValue {
	n := make([]driver.NamedValue, len(args))
	for i, v := range args {
		n[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return n
}

type rows struct {
	rs *tinycol.ResultSet
	i  int
}

func (r *rows) Columns() []string { return r.rs.Cols }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.i >= len(r.rs.Rows) {
		return io.EOF
	}
	for i, v := range r.rs.Rows[r.i] {
		dest[i] = v.Any()
	}
	r.i++
	return nil
}

var scanTypes = map[tinycol.DataType]reflect.Type{
	tinycol.IntType:   reflect.TypeOf(sql.NullInt64{}),
	tinycol.FloatType: reflect.TypeOf(sql.NullFloat64{}),
	tinycol.TextType:  reflect.TypeOf(sql.NullString{}),
	tinycol.BoolType:  reflect.TypeOf(sql.NullBool{}),
}

func (r *rows) ColumnTypeDatabaseTypeName(i int) string { return r.rs.Types[i].String() }
func (r *rows) ColumnTypeNullable(i int) (bool, bool)   { return true, true }
func (r *rows) ColumnTypeScanType(i int) reflect.Type   { return scanTypes[r.rs.Types[i]] }

type emptyRows struct{}

func (emptyRows) Columns() []string         { return []string{} }
func (emptyRows) Close() error              { return nil }
func (emptyRows) Next([]driver.Value) error { return io.EOF }

// ------------------- placeholders -------------------

// bindPlaceholders substitutes ? (sequential) and $n or :n (1-based)
// placeholders with SQL literals. Quoted strings, quoted identifiers and
// comments are copied verbatim.
func bindPlaceholders(sqlStr string, args []driver.NamedValue) (string, error) {
	var sb strings.Builder
	sb.Grow(len(sqlStr) + len(args)*10)
	argi := 0
	used := 0
	for i := 0; i < len(sqlStr); i++ {
		ch := sqlStr[i]
		if ch == '\'' || ch == '"' {
			j := skipQuoted(sqlStr, i)
			sb.WriteString(sqlStr[i:j])
			i = j - 1
			continue
		}
		if j := skipComment(sqlStr, i); j > i {
			sb.WriteString(sqlStr[i:j])
			i = j - 1
			continue
		}
		if ch == '?' {
			if argi >= len(args) {
				return "", fmt.Errorf("tinycol: not enough args for placeholders")
			}
			lit, err := sqlLiteral(args[argi].Value)
			if err != nil {
				return "", err
			}
			sb.WriteString(lit)
			argi++
			used++
			continue
		}
		if (ch == '$' || ch == ':') && i+1 < len(sqlStr) && sqlStr[i+1] >= '0' && sqlStr[i+1] <= '9' {
			j := i + 2
			for j < len(sqlStr) && sqlStr[j] >= '0' && sqlStr[j] <= '9' {
				j++
			}
			idxStr := sqlStr[i+1 : j]
			n, err := strconv.Atoi(idxStr)
			if err != nil || n <= 0 || n > len(args) {
				return "", fmt.Errorf("tinycol: invalid placeholder %c%s", ch, idxStr)
			}
			lit, err := sqlLiteral(args[n-1].Value)
			if err != nil {
				return "", err
			}
			sb.WriteString(lit)
			if n > used {
				used = n
			}
			i = j - 1
			continue
		}
		sb.WriteByte(ch)
	}
	if used < len(args) {
		return "", fmt.Errorf("tinycol: too many args for placeholders")
	}
	return sb.String(), nil
}

// skipQuoted returns the index just past the quoted run starting at i. A
// doubled quote character is an escaped quote. Unterminated runs extend to
// the end and are reported by the lexer.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// skipComment returns the index just past a -- or /* */ comment starting at
// i, or i when none starts there. Unterminated block comments extend to the
// end and are reported by the lexer.
func skipComment(s string, i int) int {
	if i+1 >= len(s) {
		return i
	}
	switch {
	case s[i] == '-' && s[i+1] == '-':
		if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
			return i + j
		}
		return len(s)
	case s[i] == '/' && s[i+1] == '*':
		if j := strings.Index(s[i+2:], "*/"); j >= 0 {
			return i + 2 + j + 2
		}
		return len(s)
	}
	return i
}

// sqlLiteral converts a Go value into a SQL literal. Floats always carry a
// fraction or exponent so they stay FLOAT under strict typing. Negative
// numbers are parenthesized so a preceding '-' cannot turn into a comment.
func sqlLiteral(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case int64:
		if x == math.MinInt64 {
			return "(-9223372036854775807 - 1)", nil
		}
		if x < 0 {
			return "(" + strconv.FormatInt(x, 10) + ")", nil
		}
		return strconv.FormatInt(x, 10), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("tinycol: cannot bind %v", x)
		}
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		if strings.HasPrefix(s, "-") {
			s = "(" + s + ")"
		}
		return s, nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	}
	return "", fmt.Errorf("tinycol: unsupported argument type %T", v)
}

// ------------------- DSN options -------------------

// applyDSNOption mutates the configuration in place for a single DSN option.
// Unknown options are ignored.
func applyDSNOption(c *cfg, key, value string) error {
	switch strings.ToLower(key) {
	case "pool_readers", "read_pool", "reader_pool":
		n, err := parsePoolSize(value, "pool_readers")
		if err != nil {
			return err
		}
		c.maxReaders = n
	case "pool_writers", "write_pool", "writer_pool":
		n, err := parsePoolSize(value, "pool_writers")
		if err != nil {
			return err
		}
		c.maxWriters = n
	case "busy_timeout", "busytimeout":
		dur, err := parseBusyTimeout(value)
		if err != nil {
			return err
		}
		c.busyTimeout = dur
	case "intern_text", "intern":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("tinycol: invalid intern_text value %q", value)
		}
		c.intern = b
	}
	return nil
}

func parsePoolSize(value, key string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("tinycol: invalid %s value %q", key, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("tinycol: %s must be >= 0", key)
	}
	return n, nil
}

// parseBusyTimeout accepts a Go duration or a bare number of milliseconds.
func parseBusyTimeout(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("tinycol: busy_timeout must be >= 0")
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("tinycol: invalid busy_timeout value %q", value)
	}
	if dur < 0 {
		return 0, fmt.Errorf("tinycol: busy_timeout must be >= 0")
	}
	return dur, nil
}
