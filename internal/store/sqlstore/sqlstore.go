package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fastestcars/internal/cars"
	"fastestcars/internal/store"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("fastestcars/store/sqlstore")

//go:embed schema.sql
var schemaTemplate string

// sqlite's strftime('%Y-%m-%dT%H:%M:%fZ') output
const timestampLayout = "2006-01-02T15:04:05.000Z"

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects between a local sqlite file and a remote libsql database.
type Config struct {
	// File is a sqlite database path, ":memory:" for an in-memory database.
	File string
	// Url is a libsql (Turso) url, when set File is ignored.
	Url       string
	AuthToken string
	Table     string
}

type Store struct {
	db    *sql.DB
	table string
}

// Schema returns the schema statements for the given table.
func Schema(table string) []string {
	contents := strings.ReplaceAll(schemaTemplate, "{{table}}", table)
	var statements []string
	for _, stmt := range strings.Split(contents, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func openDB(config Config) (*sql.DB, error) {
	if config.Url != "" {
		dsn := config.Url
		if config.AuthToken != "" {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "authToken=" + config.AuthToken
		}
		return sql.Open("libsql", dsn)
	}

	file := config.File
	if file == "" {
		file = store.DefaultTable + ".db"
	}
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, err
	}
	if file == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Open connects to the configured database and creates the table if it does
// not exist yet.
func Open(ctx context.Context, config Config) (Store, error) {
	if config.Table == "" {
		config.Table = store.DefaultTable
	}
	if !identifierRegex.MatchString(config.Table) {
		return Store{}, fmt.Errorf("invalid table name %q", config.Table)
	}

	db, err := openDB(config)
	if err != nil {
		return Store{}, err
	}
	for _, stmt := range Schema(config.Table) {
		_, err = db.ExecContext(ctx, stmt)
		if err != nil {
			db.Close()
			return Store{}, fmt.Errorf("apply schema: %w", err)
		}
	}
	return Store{db: db, table: config.Table}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) insertQuery() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cars.Columns)), ", ")
	return fmt.Sprintf(
		"insert into %s (%s) values (%s)",
		s.table, strings.Join(cars.Columns, ", "), placeholders,
	)
}

// InsertBatch inserts every record in a single transaction.
func (s Store) InsertBatch(ctx context.Context, records []cars.Record) error {
	ctx, span := tracer.Start(ctx, "InsertBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("size", len(records)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.insertQuery())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to prepare insert")
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err = stmt.ExecContext(ctx, r.Values()...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to insert record")
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit")
		return err
	}
	return nil
}

func (s Store) selectQuery() string {
	return fmt.Sprintf(
		"select id, scraped_at, %s from %s",
		strings.Join(cars.Columns, ", "), s.table,
	)
}

func (s Store) query(ctx context.Context, query string, args ...any) ([]store.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []store.Row{}
	for rows.Next() {
		var row store.Row
		var scrapedAt string
		err := rows.Scan(
			&row.ID,
			&scrapedAt,
			&row.Year,
			&row.MakeModel,
			&row.Horsepower,
			&row.TopSpeedKmh,
			&row.EngineDisplacementL,
			&row.EngineType,
		)
		if err != nil {
			return nil, err
		}
		row.ScrapedAt, err = time.Parse(timestampLayout, scrapedAt)
		if err != nil {
			return nil, fmt.Errorf("row %d: scraped_at: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s Store) All(ctx context.Context) ([]store.Row, error) {
	ctx, span := tracer.Start(ctx, "All")
	defer span.End()

	rows, err := s.query(ctx, s.selectQuery())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read rows")
		return nil, err
	}
	return rows, nil
}

func (s Store) Latest(ctx context.Context, n int) ([]store.Row, error) {
	ctx, span := tracer.Start(ctx, "Latest")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", n))

	rows, err := s.query(
		ctx,
		s.selectQuery()+" order by scraped_at desc, id desc limit ?",
		n,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read rows")
		return nil, err
	}
	return rows, nil
}
