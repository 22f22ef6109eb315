package downtime

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Options select and tune the backing database.
type Options struct {
	Driver       string
	SQLitePath   string
	MySQLDSN     string
	ConnTimeout  time.Duration
	QueryTimeout time.Duration
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	ServerName string
	From       time.Time
	To         time.Time
}

// ServiceStats contains lightweight DB health and volume counters.
type ServiceStats struct {
	Driver     string `json:"driver"`
	PingMS     int64  `json:"ping_ms"`
	Total      int64  `json:"total"`
	Active     int64  `json:"active"`
	Upcoming   int64  `json:"upcoming"`
	Indefinite int64  `json:"indefinite"`
}

// Store manages downtime records in SQL.
type Store struct {
	db           *sql.DB
	driver       string
	queryTimeout time.Duration
	now          func() time.Time
	newID        func() string
}

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS downtimes (
  id TEXT PRIMARY KEY,
  server_name TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  class TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  severity TEXT NOT NULL,
  start_time INTEGER NOT NULL,
  end_time INTEGER NOT NULL,
  created_by TEXT NOT NULL DEFAULT '',
  updated_by TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_downtimes_server ON downtimes(server_name);`,
	`CREATE INDEX IF NOT EXISTS idx_downtimes_start ON downtimes(start_time);`,
}

var mysqlSchema = []string{`
CREATE TABLE IF NOT EXISTS downtimes (
  id CHAR(36) NOT NULL PRIMARY KEY,
  server_name VARCHAR(255) NOT NULL,
  source VARCHAR(64) NOT NULL DEFAULT '',
  class VARCHAR(32) NOT NULL,
  description TEXT NOT NULL,
  severity VARCHAR(128) NOT NULL,
  start_time BIGINT NOT NULL,
  end_time BIGINT NOT NULL,
  created_by VARCHAR(255) NOT NULL DEFAULT '',
  updated_by VARCHAR(255) NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  INDEX idx_downtimes_server (server_name),
  INDEX idx_downtimes_start (start_time)
) DEFAULT CHARSET=utf8mb4;`,
}

// Open connects to the configured database and ensures the schema exists.
func Open(opts Options) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if opts.ConnTimeout <= 0 {
		opts.ConnTimeout = 5 * time.Second
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 10 * time.Second
	}

	var (
		dsn    string
		schema []string
	)
	switch driver {
	case DriverSQLite:
		dsn = strings.TrimSpace(opts.SQLitePath)
		if dsn == "" {
			return nil, errors.New("sqlite path required")
		}
		schema = sqliteSchema
	case DriverMySQL:
		dsn = strings.TrimSpace(opts.MySQLDSN)
		if dsn == "" {
			return nil, errors.New("mysql dsn required")
		}
		schema = mysqlSchema
	default:
		return nil, errors.Errorf("unsupported downtime driver %q", opts.Driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s downtime store", driver)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to reach %s downtime store", driver)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to create downtime schema")
		}
	}

	return &Store{
		db:           db,
		driver:       driver,
		queryTimeout: opts.QueryTimeout,
		now:          time.Now,
		newID:        uuid.NewString,
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

const selectColumns = `id, server_name, source, class, description, severity, start_time, end_time, created_by, updated_by, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.ServerName, &r.Source, &r.Class, &r.Description, &r.Severity,
		&r.StartTime, &r.EndTime, &r.CreatedBy, &r.UpdatedBy, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// List returns downtimes ordered by start time. With From/To set, only
// downtimes overlapping [From, To) are returned; indefinite ones never end.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	where := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if name := strings.TrimSpace(f.ServerName); name != "" {
		where = append(where, "server_name = ?")
		args = append(args, name)
	}
	if !f.To.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, f.To.UnixMilli())
	}
	if !f.From.IsZero() {
		where = append(where, "(end_time = -1 OR end_time > ?)")
		args = append(args, f.From.UnixMilli())
	}

	q := `SELECT ` + selectColumns + ` FROM downtimes`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY start_time ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list downtimes")
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	r, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM downtimes WHERE id = ?`, strings.TrimSpace(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to load downtime")
	}
	return r, nil
}

// Create stores a new downtime on behalf of user.
func (s *Store) Create(ctx context.Context, in Input, user string) (Record, error) {
	in, err := in.Normalize()
	if err != nil {
		return Record{}, err
	}

	now := s.now().UnixMilli()
	r := Record{
		ID:          s.newID(),
		ServerName:  in.ServerName,
		Source:      in.Source,
		Class:       in.Class,
		Description: in.Description,
		Severity:    in.Severity,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		CreatedBy:   strings.TrimSpace(user),
		UpdatedBy:   strings.TrimSpace(user),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO downtimes (`+selectColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, r.ID, r.ServerName, r.Source, r.Class, r.Description, r.Severity, r.StartTime, r.EndTime,
		r.CreatedBy, r.UpdatedBy, r.CreatedAt, r.UpdatedAt); err != nil {
		return Record{}, errors.Wrap(err, "failed to insert downtime")
	}
	return r, nil
}

// Update replaces the writable fields of an existing downtime.
func (s *Store) Update(ctx context.Context, id string, in Input, user string) (Record, error) {
	in, err := in.Normalize()
	if err != nil {
		return Record{}, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	res, err := s.db.ExecContext(qctx, `
UPDATE downtimes SET
  server_name = ?, source = ?, class = ?, description = ?, severity = ?,
  start_time = ?, end_time = ?, updated_by = ?, updated_at = ?
WHERE id = ?;
`, in.ServerName, in.Source, in.Class, in.Description, in.Severity, in.StartTime, in.EndTime,
		strings.TrimSpace(user), s.now().UnixMilli(), strings.TrimSpace(id))
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to update downtime")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Record{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM downtimes WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return errors.Wrap(err, "failed to delete downtime")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ServiceStats returns store health and downtime counters.
func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}
	out := &ServiceStats{Driver: s.driver, PingMS: time.Since(start).Milliseconds()}

	now := s.now().UnixMilli()
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downtimes`).Scan(&out.Total); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downtimes WHERE start_time <= ? AND (end_time = -1 OR end_time > ?)`, now, now).Scan(&out.Active); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downtimes WHERE start_time > ?`, now).Scan(&out.Upcoming); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downtimes WHERE end_time = -1`).Scan(&out.Indefinite); err != nil {
		return nil, err
	}
	return out, nil
}
