package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/autoindex/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// sqlEngine stores trackers, jobs and sources in a relational database.
// The schema is owned by the embedded migrations.
type sqlEngine struct {
	db   *sql.DB
	kind schema.DatabaseBackend
}

// NewSQLStore connects to the database, migrates it to the latest schema and
// returns a Service on top of it.
func NewSQLStore(backend schema.DatabaseBackend, connStr string, opts ...Option) (*Service, error) {
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := migrateDB(db, backend, -1); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newService(&sqlEngine{db: db, kind: backend}, opts...), nil
}

// openDB opens and pings the database of the given backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = GetDBFilePath()
		}
		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store at %q: %w. Ensure the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		db, err = sql.Open("mysql", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL store: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=mysecretpassword dbname=postgres
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL store: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	default:
		return nil, fmt.Errorf("unsupported SQL backend: %s. Must be sqlite, mysql or postgresql", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return db, nil
}

func (e *sqlEngine) backend() schema.DatabaseBackend { return e.kind }

// update takes a row lock on the source in MySQL and PostgreSQL so that
// several processes sharing one database still serialize per source.
// SQLite runs on a single connection, which already serializes transactions.
func (e *sqlEngine) update(ctx context.Context, sourceID string, fn func(tx) error) error {
	dbTx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	t := &sqlTx{ctx: ctx, tx: dbTx, e: e}
	if err := t.lockSource(sourceID); err != nil {
		_ = dbTx.Rollback()
		return err
	}
	if err := fn(t); err != nil {
		_ = dbTx.Rollback()
		return err
	}
	return dbTx.Commit()
}

func (e *sqlEngine) view(ctx context.Context, fn func(tx) error) error {
	dbTx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()
	return fn(&sqlTx{ctx: ctx, tx: dbTx, e: e})
}

func (e *sqlEngine) tableSizes(ctx context.Context) (map[string]int64, error) {
	sizes := make(map[string]int64, len(allTables))
	for _, table := range allTables {
		var n int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, e.kind))
		if err := e.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		sizes[table] = n
	}
	return sizes, nil
}

func (e *sqlEngine) close() error {
	return e.db.Close()
}

type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
	e   *sqlEngine
}

// q quotes the table and rewrites ? placeholders for the backend.
func (t *sqlTx) q(format, table string) string {
	return rebind(fmt.Sprintf(format, quoteTableName(table, t.e.kind)), t.e.kind)
}

func (t *sqlTx) exec(query string, args ...any) error {
	_, err := t.tx.ExecContext(t.ctx, query, args...)
	return err
}

func (t *sqlTx) lockSource(sourceID string) error {
	var insert string
	switch t.e.kind {
	case schema.MySQLBackend:
		insert = "INSERT IGNORE INTO %s (source_id) VALUES (?)"
	case schema.PostgreSQLBackend:
		insert = "INSERT INTO %s (source_id) VALUES (?) ON CONFLICT (source_id) DO NOTHING"
	default:
		return nil
	}
	if err := t.exec(t.q(insert, locksTable), sourceID); err != nil {
		return fmt.Errorf("failed to register lock of %s: %w", sourceID, err)
	}
	var locked string
	row := t.tx.QueryRowContext(t.ctx, t.q("SELECT source_id FROM %s WHERE source_id = ? FOR UPDATE", locksTable), sourceID)
	if err := row.Scan(&locked); err != nil {
		return fmt.Errorf("failed to lock %s: %w", sourceID, err)
	}
	return nil
}

func (t *sqlTx) loadTracker(sourceID string) (*schema.Tracker, error) {
	tr := schema.NewTracker(sourceID)

	var b schema.Window
	row := t.tx.QueryRowContext(t.ctx, t.q("SELECT bounds_from, bounds_to FROM %s WHERE source_id = ?", boundsTable), sourceID)
	switch err := row.Scan(&b.From, &b.To); {
	case err == nil:
		tr.Bounds = &b
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to read bounds: %w", err)
	}

	rows, err := t.tx.QueryContext(t.ctx, t.q("SELECT window_from, window_to FROM %s WHERE source_id = ? ORDER BY window_from", windowsTable), sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to read windows: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var w schema.Window
		if err := rows.Scan(&w.From, &w.To); err != nil {
			return nil, fmt.Errorf("failed to scan window: %w", err)
		}
		tr.Windows = append(tr.Windows, w)
	}
	return tr, rows.Err()
}

func (t *sqlTx) insertWindow(sourceID string, w schema.Window) error {
	return t.exec(t.q("INSERT INTO %s (source_id, window_from, window_to) VALUES (?, ?, ?)", windowsTable), sourceID, w.From, w.To)
}

func (t *sqlTx) deleteWindows(sourceID string, ws []schema.Window) error {
	query := t.q("DELETE FROM %s WHERE source_id = ? AND window_from = ? AND window_to = ?", windowsTable)
	for _, w := range ws {
		if err := t.exec(query, sourceID, w.From, w.To); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) clearWindows(sourceID string) error {
	return t.exec(t.q("DELETE FROM %s WHERE source_id = ?", windowsTable), sourceID)
}

func (t *sqlTx) putBounds(sourceID string, b schema.Window) error {
	var upsert string
	switch t.e.kind {
	case schema.MySQLBackend:
		upsert = `INSERT INTO %s (source_id, bounds_from, bounds_to) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE bounds_from = new.bounds_from, bounds_to = new.bounds_to`
	case schema.PostgreSQLBackend:
		upsert = `INSERT INTO %s (source_id, bounds_from, bounds_to) VALUES (?, ?, ?)
			ON CONFLICT (source_id) DO UPDATE SET bounds_from = EXCLUDED.bounds_from, bounds_to = EXCLUDED.bounds_to`
	default: // SQLite
		upsert = `INSERT OR REPLACE INTO %s (source_id, bounds_from, bounds_to) VALUES (?, ?, ?)`
	}
	return t.exec(t.q(upsert, boundsTable), sourceID, b.From, b.To)
}

const jobColumns = "job_id, source_id, window_from, window_to, created_at, started_at"

func scanJob(row interface{ Scan(...any) error }) (*schema.IndexJob, error) {
	var j schema.IndexJob
	if err := row.Scan(&j.JobID, &j.SourceID, &j.Window.From, &j.Window.To, &j.CreatedAt, &j.StartedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func (t *sqlTx) jobBySource(sourceID string) (*schema.IndexJob, error) {
	row := t.tx.QueryRowContext(t.ctx, t.q("SELECT "+jobColumns+" FROM %s WHERE source_id = ?", jobsTable), sourceID)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (t *sqlTx) job(jobID string) (*schema.IndexJob, error) {
	row := t.tx.QueryRowContext(t.ctx, t.q("SELECT "+jobColumns+" FROM %s WHERE job_id = ?", jobsTable), jobID)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, schema.ErrJobNotFound
	}
	return j, err
}

func (t *sqlTx) listJobs() ([]schema.IndexJob, error) {
	rows, err := t.tx.QueryContext(t.ctx, t.q("SELECT "+jobColumns+" FROM %s ORDER BY created_at, source_id", jobsTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.IndexJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (t *sqlTx) insertJob(j schema.IndexJob) error {
	return t.exec(t.q("INSERT INTO %s ("+jobColumns+") VALUES (?, ?, ?, ?, ?, ?)", jobsTable),
		j.JobID, j.SourceID, j.Window.From, j.Window.To, j.CreatedAt, j.StartedAt)
}

func (t *sqlTx) setJobStarted(jobID string, startedAt int64) error {
	res, err := t.tx.ExecContext(t.ctx, t.q("UPDATE %s SET started_at = ? WHERE job_id = ?", jobsTable), startedAt, jobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schema.ErrJobNotFound
	}
	return nil
}

func (t *sqlTx) deleteJob(jobID string) error {
	return t.exec(t.q("DELETE FROM %s WHERE job_id = ?", jobsTable), jobID)
}

const sourceColumns = "source_id, raw_type, raw_name, indexed_type, indexed_name, time_field, window_size, lookback, enabled"

func scanSource(row interface{ Scan(...any) error }) (schema.TrackedSource, error) {
	var s schema.TrackedSource
	err := row.Scan(&s.ID, &s.Raw.Type, &s.Raw.Name, &s.Indexed.Type, &s.Indexed.Name,
		&s.TimeField, &s.WindowSize, &s.Lookback, &s.Enabled)
	return s, err
}

func (t *sqlTx) listSources() ([]schema.TrackedSource, error) {
	rows, err := t.tx.QueryContext(t.ctx, t.q("SELECT "+sourceColumns+" FROM %s ORDER BY source_id", sourcesTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.TrackedSource
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *sqlTx) source(id string) (schema.TrackedSource, error) {
	row := t.tx.QueryRowContext(t.ctx, t.q("SELECT "+sourceColumns+" FROM %s WHERE source_id = ?", sourcesTable), id)
	s, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, schema.ErrSourceNotFound
	}
	return s, err
}

func (t *sqlTx) putSource(s schema.TrackedSource) error {
	var upsert string
	switch t.e.kind {
	case schema.MySQLBackend:
		upsert = `INSERT INTO %s (` + sourceColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE raw_type = new.raw_type, raw_name = new.raw_name,
			indexed_type = new.indexed_type, indexed_name = new.indexed_name, time_field = new.time_field,
			window_size = new.window_size, lookback = new.lookback, enabled = new.enabled`
	case schema.PostgreSQLBackend:
		upsert = `INSERT INTO %s (` + sourceColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (source_id) DO UPDATE SET raw_type = EXCLUDED.raw_type, raw_name = EXCLUDED.raw_name,
			indexed_type = EXCLUDED.indexed_type, indexed_name = EXCLUDED.indexed_name, time_field = EXCLUDED.time_field,
			window_size = EXCLUDED.window_size, lookback = EXCLUDED.lookback, enabled = EXCLUDED.enabled`
	default: // SQLite
		upsert = `INSERT OR REPLACE INTO %s (` + sourceColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	}
	return t.exec(t.q(upsert, sourcesTable), s.ID, string(s.Raw.Type), s.Raw.Name, string(s.Indexed.Type), s.Indexed.Name,
		s.TimeField, s.WindowSize, s.Lookback, s.Enabled)
}

func (t *sqlTx) deleteSource(id string) error {
	return t.exec(t.q("DELETE FROM %s WHERE source_id = ?", sourcesTable), id)
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func rebind(query string, backend schema.DatabaseBackend) string {
	if backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
