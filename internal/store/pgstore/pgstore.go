package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"fastestcars/internal/cars"
	"fastestcars/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("fastestcars/store/pgstore")

//go:embed schema.sql
var schemaTemplate string

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Store struct {
	pool  *pgxpool.Pool
	table string
}

func schema(table string) []string {
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

// Open connects to the database at dsn and creates the table if needed.
func Open(ctx context.Context, dsn, table string) (Store, error) {
	if table == "" {
		table = store.DefaultTable
	}
	if !identifierRegex.MatchString(table) {
		return Store{}, fmt.Errorf("invalid table name %q", table)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return Store{}, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return Store{}, err
	}
	for _, stmt := range schema(table) {
		_, err = pool.Exec(ctx, stmt)
		if err != nil {
			pool.Close()
			return Store{}, fmt.Errorf("apply schema: %w", err)
		}
	}
	return Store{pool: pool, table: table}, nil
}

func (s Store) Close() error {
	s.pool.Close()
	return nil
}

func (s Store) insertQuery() string {
	placeholders := make([]string, len(cars.Columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"insert into %s (%s) values (%s)",
		s.table, strings.Join(cars.Columns, ", "), strings.Join(placeholders, ", "),
	)
}

// InsertBatch queues every record into a single pgx.Batch sent inside one
// transaction.
func (s Store) InsertBatch(ctx context.Context, records []cars.Record) error {
	ctx, span := tracer.Start(ctx, "InsertBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("size", len(records)))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return err
	}
	defer tx.Rollback(ctx)

	query := s.insertQuery()
	b := &pgx.Batch{}
	for _, r := range records {
		b.Queue(query, r.Values()...)
	}

	br := tx.SendBatch(ctx, b)
	for range records {
		_, err = br.Exec()
		if err != nil {
			br.Close()
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to insert record")
			return err
		}
	}
	err = br.Close()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close batch")
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit")
		return err
	}
	return nil
}

func scanRow(row pgx.CollectableRow) (store.Row, error) {
	var out store.Row
	err := row.Scan(
		&out.ID,
		&out.ScrapedAt,
		&out.Year,
		&out.MakeModel,
		&out.Horsepower,
		&out.TopSpeedKmh,
		&out.EngineDisplacementL,
		&out.EngineType,
	)
	return out, err
}

func (s Store) selectQuery() string {
	return fmt.Sprintf(
		"select id, scraped_at, %s from %s",
		strings.Join(cars.Columns, ", "), s.table,
	)
}

func (s Store) query(ctx context.Context, query string, args ...any) ([]store.Row, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scanRow)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []store.Row{}
	}
	return out, nil
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

	rows, err := s.query(ctx, s.selectQuery()+" order by scraped_at desc, id desc limit $1", n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read rows")
		return nil, err
	}
	return rows, nil
}
