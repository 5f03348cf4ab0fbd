package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/speakwell/speakwell/internal/analysis"
)

// ErrUserExists is returned by [Store.CreateUser] when the username is taken.
var ErrUserExists = errors.New("store: username already exists")

// ErrUserNotFound is returned when no user matches the given username.
var ErrUserNotFound = errors.New("store: user not found")

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Recording is one persisted analysis result.
type Recording struct {
	ID            int64                  `json:"id"`
	SessionID     string                 `json:"session_id"`
	Username      string                 `json:"-"`
	Transcript    string                 `json:"transcript"`
	CorrectedText string                 `json:"corrected_text"`
	GrammarScore  float64                `json:"grammar_score"`
	Fluency       []analysis.Segment     `json:"fluency"`
	Errors        []analysis.ErrorDetail `json:"errors"`
	AudioFile     string                 `json:"audio_file"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Dashboard is the aggregate progress view for one user.
type Dashboard struct {
	SessionCount int                    `json:"session_count"`
	AvgFluency   float64                `json:"avg_fluency"`
	AvgGrammar   float64                `json:"avg_grammar"`
	RecentErrors []analysis.ErrorDetail `json:"recent_errors"`
}

// Store is the PostgreSQL-backed persistence layer. All operations are safe
// for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at dsn, verifies the connection, and runs
// [Migrate].
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser registers a new account. The username is stored lowercased so
// logins are case-insensitive. Returns [ErrUserExists] when taken.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)`,
		strings.ToLower(username), passwordHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

// UserByUsername fetches an account. Returns [ErrUserNotFound] when absent.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		strings.ToLower(username),
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: fetch user: %w", err)
	}
	return &u, nil
}

// SaveAnalysis persists one analysis result and fills in the generated ID
// and creation timestamp.
func (s *Store) SaveAnalysis(ctx context.Context, rec *Recording) error {
	fluency, err := json.Marshal(orEmptySegments(rec.Fluency))
	if err != nil {
		return fmt.Errorf("store: marshal fluency: %w", err)
	}
	errDetails, err := json.Marshal(orEmptyErrors(rec.Errors))
	if err != nil {
		return fmt.Errorf("store: marshal errors: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO recordings
		    (session_id, username, transcript, corrected_text, grammar_score, fluency, errors, audio_file)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		rec.SessionID, strings.ToLower(rec.Username), rec.Transcript, rec.CorrectedText,
		rec.GrammarScore, fluency, errDetails, rec.AudioFile,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: save analysis: %w", err)
	}
	return nil
}

// History returns the user's recordings newest first, at most limit entries.
// A non-positive limit returns everything.
func (s *Store) History(ctx context.Context, username string, limit int) ([]Recording, error) {
	query := `SELECT id, session_id, username, transcript, corrected_text,
	                 grammar_score, fluency, errors, audio_file, created_at
	          FROM recordings WHERE username = $1 ORDER BY created_at DESC`
	args := []any{strings.ToLower(username)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate history: %w", err)
	}
	return out, nil
}

// maxRecentErrors caps the error list on the dashboard.
const maxRecentErrors = 10

// Dashboard aggregates the user's progress: average overall fluency and
// grammar scores, the total recording count, and the most recent corrections.
// The aggregation runs over the history in Go because the fluency score lives
// inside a JSONB segment list.
func (s *Store) Dashboard(ctx context.Context, username string) (*Dashboard, error) {
	recs, err := s.History(ctx, username, 0)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		SessionCount: len(recs),
		RecentErrors: []analysis.ErrorDetail{},
	}
	if len(recs) == 0 {
		return d, nil
	}

	var fluencySum, grammarSum float64
	for _, rec := range recs {
		if len(rec.Fluency) > 0 {
			fluencySum += rec.Fluency[0].Score
		}
		grammarSum += rec.GrammarScore
		if len(d.RecentErrors) < maxRecentErrors {
			d.RecentErrors = append(d.RecentErrors, rec.Errors...)
			if len(d.RecentErrors) > maxRecentErrors {
				d.RecentErrors = d.RecentErrors[:maxRecentErrors]
			}
		}
	}
	d.AvgFluency = fluencySum / float64(len(recs))
	d.AvgGrammar = grammarSum / float64(len(recs))
	return d, nil
}

// scanRecording reads one recordings row, decoding the JSONB columns.
func scanRecording(row pgx.Row) (Recording, error) {
	var (
		rec        Recording
		fluency    []byte
		errDetails []byte
	)
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.Username, &rec.Transcript,
		&rec.CorrectedText, &rec.GrammarScore, &fluency, &errDetails,
		&rec.AudioFile, &rec.CreatedAt)
	if err != nil {
		return Recording{}, fmt.Errorf("store: scan recording: %w", err)
	}
	if err := json.Unmarshal(fluency, &rec.Fluency); err != nil {
		return Recording{}, fmt.Errorf("store: decode fluency: %w", err)
	}
	if err := json.Unmarshal(errDetails, &rec.Errors); err != nil {
		return Recording{}, fmt.Errorf("store: decode errors: %w", err)
	}
	return rec, nil
}

// orEmptySegments keeps stored JSON as [] rather than null.
func orEmptySegments(segs []analysis.Segment) []analysis.Segment {
	if segs == nil {
		return []analysis.Segment{}
	}
	return segs
}

// orEmptyErrors keeps stored JSON as [] rather than null.
func orEmptyErrors(errs []analysis.ErrorDetail) []analysis.ErrorDetail {
	if errs == nil {
		return []analysis.ErrorDetail{}
	}
	return errs
}
