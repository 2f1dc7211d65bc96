package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql. SQLite (embedded, default) and
// PostgreSQL share one implementation; queries are written with ? placeholders
// and rebound for postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open opens a database connection and runs pending migrations.
// For SQLite, dsn is a file path or ":memory:". For Postgres, dsn is a
// standard connection string.
func Open(driver, dsn string) (*SQLStore, error) {
	var db *sql.DB
	var err error

	switch driver {
	case DriverSQLite:
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
	case DriverPostgres:
		db, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if driver == DriverSQLite {
		// The modernc driver opens one connection per call; a lone writer
		// avoids SQLITE_BUSY under the UI server.
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func sqliteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return ":memory:?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
}

// rebind converts ? placeholders to $n for postgres. SQLite queries pass
// through untouched.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations and tests.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// CreateSentence inserts one sentence row and returns it with a generated id.
func (s *SQLStore) CreateSentence(ctx context.Context, text, lang string) (*Sentence, error) {
	if lang == "" {
		lang = "en"
	}
	sent := &Sentence{
		ID:        uuid.New().String(),
		Text:      text,
		Language:  lang,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO sentences (id, text, language, created_at) VALUES (?, ?, ?, ?)`),
		sent.ID, sent.Text, sent.Language, sent.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentence: %w", err)
	}
	return sent, nil
}

// InsertDependencies bulk-inserts dependency rows for a sentence in one
// transaction.
func (s *SQLStore) InsertDependencies(ctx context.Context, sentenceID string, rows []*Dependency) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Check the referenced sentence inside the transaction so a missing id
	// fails the same way on both backends.
	var one int
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT 1 FROM sentences WHERE id = ?`), sentenceID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: sentence %s does not exist", ErrIntegrity, sentenceID)
	}
	if err != nil {
		return fmt.Errorf("failed to check sentence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO dependencies
		 (id, sentence_id, position, token_text, token_pos, dependency_label, head_text, head_pos, model_type, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		row.SentenceID = sentenceID

		if _, err := stmt.ExecContext(ctx,
			row.ID, row.SentenceID, row.Position, row.TokenText, row.TokenPOS,
			row.DependencyLabel, row.HeadText, row.HeadPOS, row.ModelType, row.Confidence,
		); err != nil {
			return fmt.Errorf("failed to insert dependency: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dependencies: %w", err)
	}
	return nil
}

// GetSentence retrieves a sentence by id. Returns nil without error when the
// id is unknown.
func (s *SQLStore) GetSentence(ctx context.Context, id string) (*Sentence, error) {
	sent := &Sentence{}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, text, language, created_at FROM sentences WHERE id = ?`), id,
	).Scan(&sent.ID, &sent.Text, &sent.Language, &sent.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sentence: %w", err)
	}
	return sent, nil
}

// ListSentences returns sentences ordered by created_at descending.
func (s *SQLStore) ListSentences(ctx context.Context, limit, offset int) ([]*Sentence, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, text, language, created_at FROM sentences
		          ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sentences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sentences []*Sentence
	for rows.Next() {
		sent := &Sentence{}
		if err := rows.Scan(&sent.ID, &sent.Text, &sent.Language, &sent.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sentence: %w", err)
		}
		sentences = append(sentences, sent)
	}
	return sentences, rows.Err()
}

// ListDependencies returns the dependency rows of a sentence grouped by model
// and ordered by token position.
func (s *SQLStore) ListDependencies(ctx context.Context, sentenceID string) ([]*Dependency, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, sentence_id, position, token_text, token_pos, dependency_label,
		                 head_text, head_pos, model_type, confidence
		          FROM dependencies WHERE sentence_id = ?
		          ORDER BY model_type, position`),
		sentenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deps []*Dependency
	for rows.Next() {
		d := &Dependency{}
		var confidence sql.NullFloat64
		if err := rows.Scan(&d.ID, &d.SentenceID, &d.Position, &d.TokenText, &d.TokenPOS,
			&d.DependencyLabel, &d.HeadText, &d.HeadPOS, &d.ModelType, &confidence); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		if confidence.Valid {
			d.Confidence = &confidence.Float64
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// AggregateStats scans the dependencies table and returns frequency counts.
func (s *SQLStore) AggregateStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		LabelCounts: map[string]int64{},
		POSCounts:   map[string]int64{},
		ModelCounts: map[string]int64{},
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sentences`).Scan(&stats.SentenceCount); err != nil {
		return nil, fmt.Errorf("failed to count sentences: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dependencies`).Scan(&stats.DependencyCount); err != nil {
		return nil, fmt.Errorf("failed to count dependencies: %w", err)
	}

	counts := []struct {
		query string
		into  map[string]int64
	}{
		{`SELECT dependency_label, COUNT(*) FROM dependencies GROUP BY dependency_label`, stats.LabelCounts},
		{`SELECT token_pos, COUNT(*) FROM dependencies GROUP BY token_pos`, stats.POSCounts},
		{`SELECT model_type, COUNT(*) FROM dependencies GROUP BY model_type`, stats.ModelCounts},
	}

	for _, c := range counts {
		rows, err := s.db.QueryContext(ctx, c.query)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate stats: %w", err)
		}
		for rows.Next() {
			var key string
			var n int64
			if err := rows.Scan(&key, &n); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan stats row: %w", err)
			}
			c.into[key] = n
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
	}

	return stats, nil
}

// Reset deletes all rows. Dependencies go first to satisfy the foreign key.
func (s *SQLStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies`); err != nil {
		return fmt.Errorf("failed to clear dependencies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sentences`); err != nil {
		return fmt.Errorf("failed to clear sentences: %w", err)
	}
	return tx.Commit()
}

var _ Store = (*SQLStore)(nil)
