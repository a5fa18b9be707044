package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var recordColumns = []string{
	"paper_id",
	"title",
	"authors",
	"published_date",
	"link",
	"summary",
	"ai_topic",
	"ai_findings",
	"ai_methodology",
	"ai_significance",
	"ai_keywords",
	"processed_at",
	"source",
	"metadata",
}

// SQLSink upserts records into a relational table keyed by paper_id.
type SQLSink struct {
	db      *sql.DB
	table   string
	builder sq.StatementBuilderType
}

var _ ports.Sink = (*SQLSink)(nil)

// OpenPostgres connects through lib/pq.
func OpenPostgres(ctx context.Context, dsn, table string, migrate bool) (*SQLSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLSink(ctx, db, table, sq.Dollar, migrate)
}

// OpenSQLite opens (or creates) a database file with the pure Go driver.
func OpenSQLite(ctx context.Context, path, table string, migrate bool) (*SQLSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return newSQLSink(ctx, db, table, sq.Question, migrate)
}

func newSQLSink(ctx context.Context, db *sql.DB, table string, ph sq.PlaceholderFormat, migrate bool) (*SQLSink, error) {
	if !tableName.MatchString(table) {
		_ = db.Close()
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	s := &SQLSink{
		db:      db,
		table:   pq.QuoteIdentifier(table),
		builder: sq.StatementBuilder.PlaceholderFormat(ph),
	}
	if migrate {
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// EnsureSchema creates the table when it does not exist yet.
func (s *SQLSink) EnsureSchema(ctx context.Context) error {
	cols := make([]string, 0, len(recordColumns))
	for _, c := range recordColumns {
		if c == "paper_id" {
			cols = append(cols, "paper_id TEXT PRIMARY KEY")
			continue
		}
		cols = append(cols, c+" TEXT")
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.table, strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Exists reports whether a row with paper_id = key is present.
func (s *SQLSink) Exists(ctx context.Context, key string) (bool, error) {
	query, args, err := s.builder.
		Select("1").
		From(s.table).
		Where(sq.Eq{"paper_id": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query exists: %w", err)
	}
	return true, nil
}

// Write upserts the record; key overrides record.PaperID.
func (s *SQLSink) Write(ctx context.Context, key string, record domain.Record) error {
	values, err := rowValues(key, record)
	if err != nil {
		return err
	}

	updates := make([]string, 0, len(recordColumns)-1)
	for _, c := range recordColumns[1:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}

	query, args, err := s.builder.
		Insert(s.table).
		Columns(recordColumns...).
		Values(values...).
		Suffix("ON CONFLICT (paper_id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Get loads one record back; used by tooling and tests.
func (s *SQLSink) Get(ctx context.Context, key string) (domain.Record, error) {
	query, args, err := s.builder.
		Select(recordColumns...).
		From(s.table).
		Where(sq.Eq{"paper_id": key}).
		ToSql()
	if err != nil {
		return domain.Record{}, fmt.Errorf("build get query: %w", err)
	}

	var (
		rec                          domain.Record
		findings, keywords, metadata sql.NullString
		processedAt                  string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.PaperID, &rec.Title, &rec.Authors, &rec.PublishedDate, &rec.Link, &rec.Summary,
		&rec.AITopic, &findings, &rec.AIMethodology, &rec.AISignificance, &keywords,
		&processedAt, &rec.Source, &metadata,
	)
	if err != nil {
		return domain.Record{}, fmt.Errorf("get record: %w", err)
	}
	if err := decodeJSONColumn(findings, &rec.AIFindings); err != nil {
		return domain.Record{}, err
	}
	if err := decodeJSONColumn(keywords, &rec.AIKeywords); err != nil {
		return domain.Record{}, err
	}
	if err := decodeJSONColumn(metadata, &rec.Metadata); err != nil {
		return domain.Record{}, err
	}
	if rec.ProcessedAt, err = parseISO(processedAt); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

// Close releases the connection pool.
func (s *SQLSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func rowValues(key string, r domain.Record) ([]any, error) {
	findings, err := json.Marshal(nonNil(r.AIFindings))
	if err != nil {
		return nil, fmt.Errorf("encode findings: %w", err)
	}
	keywords, err := json.Marshal(nonNil(r.AIKeywords))
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return []any{
		key,
		r.Title,
		r.Authors,
		r.PublishedDate,
		r.Link,
		domain.Truncate(r.Summary, domain.SummaryLimit),
		r.AITopic,
		string(findings),
		r.AIMethodology,
		r.AISignificance,
		string(keywords),
		r.ProcessedAtISO(),
		r.Source,
		string(metadata),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func decodeJSONColumn(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("decode column: %w", err)
	}
	return nil
}
