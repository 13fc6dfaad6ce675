package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"sqlquiz/internal/content"
)

var (
	// ErrStoreUnavailable means the persistence medium could not be opened.
	// Fatal to initialization; retry is "reopen the app".
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSeedFailed means a content re-seed aborted. The transaction rolled
	// back, so the previously seeded version remains authoritative.
	ErrSeedFailed = errors.New("content seed failed")
)

const versionKey = "content_version"

// SQLiteStore is the durable store: sections, questions, per-user progress,
// and metadata, all in one schema-versioned SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	// No FK constraints: seeding replaces sections and questions wholesale
	// inside one transaction, and progress rows deliberately survive re-seeds.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sections (
			section_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			section_id TEXT NOT NULL,
			question_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			prompt TEXT NOT NULL,
			options_json TEXT,
			answer TEXT,
			setup_json TEXT,
			reference_query TEXT,
			explanation TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (section_id, question_id)
		);`,
		`CREATE TABLE IF NOT EXISTS user_progress (
			user_id TEXT NOT NULL,
			section_id TEXT NOT NULL,
			current_index INTEGER NOT NULL,
			answers_json TEXT NOT NULL,
			score INTEGER NOT NULL,
			updated_at_ns INTEGER NOT NULL,
			PRIMARY KEY (user_id, section_id)
		);`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_section ON questions(section_id);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_user ON user_progress(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_section ON user_progress(section_id);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SeedIfStale replaces the sections and questions collections from the content
// document when its version is newer than the stored one, as one transaction.
//
// Invariants:
//   - Equal or lower content version performs zero writes.
//   - A reader never observes a half-cleared collection: clear, insert, and
//     the version bump commit together or not at all.
//   - Progress rows are untouched; only content collections are replaced.
func (s *SQLiteStore) SeedIfStale(ctx context.Context, doc content.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSeedFailed, err)
	}
	defer tx.Rollback()

	storedVersion, err := readVersion(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSeedFailed, err)
	}

	if doc.Version <= storedVersion {
		log.Debug().Int("stored_version", storedVersion).Int("content_version", doc.Version).
			Msg("content store is up to date")
		return nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sections`); err != nil {
		return fmt.Errorf("%w: %v", ErrSeedFailed, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return fmt.Errorf("%w: %v", ErrSeedFailed, err)
	}

	sections, questions := BuildSections(doc)

	for _, section := range sections {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO sections (section_id, kind, title, position) VALUES (?, ?, ?, ?)`,
			section.SectionID,
			string(section.Kind),
			section.Title,
			section.Position,
		); err != nil {
			return fmt.Errorf("%w: section %s: %v", ErrSeedFailed, section.SectionID, err)
		}
	}

	for _, question := range questions {
		optionsJSON, setupJSON, err := marshalQuestionPayloads(question)
		if err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrSeedFailed, question.QuestionID, err)
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO questions
			 (section_id, question_id, kind, prompt, options_json, answer, setup_json, reference_query, explanation, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			question.SectionID,
			question.QuestionID,
			string(question.Kind),
			question.Prompt,
			optionsJSON,
			question.Answer,
			setupJSON,
			question.ReferenceQuery,
			question.Explanation,
			question.Position,
		); err != nil {
			return fmt.Errorf("%w: question %s/%d: %v", ErrSeedFailed, question.SectionID, question.QuestionID, err)
		}
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		versionKey,
		doc.Version,
	); err != nil {
		return fmt.Errorf("%w: %v", ErrSeedFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrSeedFailed, err)
	}

	log.Info().Int("from_version", storedVersion).Int("to_version", doc.Version).
		Int("sections", len(sections)).Int("questions", len(questions)).
		Msg("content store re-seeded")
	return nil
}

// ContentVersion reports the currently applied content version, 0 when the
// store has never been seeded.
func (s *SQLiteStore) ContentVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT value FROM metadata WHERE key = ?`,
		versionKey,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func readVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var version int
	err := tx.QueryRowContext(
		ctx,
		`SELECT value FROM metadata WHERE key = ?`,
		versionKey,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func marshalQuestionPayloads(question Question) (string, string, error) {
	optionsJSON, err := json.Marshal(question.Options)
	if err != nil {
		return "", "", err
	}
	setupJSON, err := json.Marshal(question.Setup)
	if err != nil {
		return "", "", err
	}
	return string(optionsJSON), string(setupJSON), nil
}

func (s *SQLiteStore) GetSections(ctx context.Context) ([]Section, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT section_id, kind, title, position FROM sections ORDER BY position ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := make([]Section, 0)
	for rows.Next() {
		var section Section
		var kind string
		if err := rows.Scan(&section.SectionID, &kind, &section.Title, &section.Position); err != nil {
			return nil, err
		}
		section.Kind = SectionKind(kind)
		sections = append(sections, section)
	}

	return sections, rows.Err()
}

func (s *SQLiteStore) GetSection(ctx context.Context, sectionID string) (Section, bool, error) {
	var section Section
	var kind string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT section_id, kind, title, position FROM sections WHERE section_id = ?`,
		sectionID,
	).Scan(&section.SectionID, &kind, &section.Title, &section.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return Section{}, false, nil
	}
	if err != nil {
		return Section{}, false, err
	}

	section.Kind = SectionKind(kind)
	return section, true, nil
}

func (s *SQLiteStore) GetQuestions(ctx context.Context, sectionID string) ([]Question, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT section_id, question_id, kind, prompt, options_json, answer, setup_json, reference_query, explanation, position
		 FROM questions
		 WHERE section_id = ?
		 ORDER BY position ASC`,
		sectionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]Question, 0)
	for rows.Next() {
		var (
			question    Question
			kind        string
			optionsJSON sql.NullString
			answer      sql.NullString
			setupJSON   sql.NullString
			reference   sql.NullString
		)
		if err := rows.Scan(
			&question.SectionID,
			&question.QuestionID,
			&kind,
			&question.Prompt,
			&optionsJSON,
			&answer,
			&setupJSON,
			&reference,
			&question.Explanation,
			&question.Position,
		); err != nil {
			return nil, err
		}

		question.Kind = QuestionKind(kind)
		question.Answer = answer.String
		question.ReferenceQuery = reference.String
		if optionsJSON.Valid && optionsJSON.String != "" {
			if err := json.Unmarshal([]byte(optionsJSON.String), &question.Options); err != nil {
				return nil, err
			}
		}
		if setupJSON.Valid && setupJSON.String != "" {
			if err := json.Unmarshal([]byte(setupJSON.String), &question.Setup); err != nil {
				return nil, err
			}
		}

		questions = append(questions, question)
	}

	return questions, rows.Err()
}

func (s *SQLiteStore) GetProgress(ctx context.Context, userID, sectionID string) (ProgressRecord, bool, error) {
	var (
		record      ProgressRecord
		answersJSON string
		updatedAtNs int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT user_id, section_id, current_index, answers_json, score, updated_at_ns
		 FROM user_progress
		 WHERE user_id = ? AND section_id = ?`,
		userID,
		sectionID,
	).Scan(&record.UserID, &record.SectionID, &record.CurrentIndex, &answersJSON, &record.Score, &updatedAtNs)
	if errors.Is(err, sql.ErrNoRows) {
		return ProgressRecord{}, false, nil
	}
	if err != nil {
		return ProgressRecord{}, false, err
	}

	if err := json.Unmarshal([]byte(answersJSON), &record.Answers); err != nil {
		return ProgressRecord{}, false, err
	}
	record.UpdatedAt = time.Unix(0, updatedAtNs).UTC()
	return record, true, nil
}

func (s *SQLiteStore) GetAllProgress(ctx context.Context, userID string) ([]ProgressRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT user_id, section_id, current_index, answers_json, score, updated_at_ns
		 FROM user_progress
		 WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]ProgressRecord, 0)
	for rows.Next() {
		var (
			record      ProgressRecord
			answersJSON string
			updatedAtNs int64
		)
		if err := rows.Scan(&record.UserID, &record.SectionID, &record.CurrentIndex, &answersJSON, &record.Score, &updatedAtNs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answersJSON), &record.Answers); err != nil {
			return nil, err
		}
		record.UpdatedAt = time.Unix(0, updatedAtNs).UTC()
		records = append(records, record)
	}

	return records, rows.Err()
}

// PutProgress upserts the (user, section) progress row.
func (s *SQLiteStore) PutProgress(ctx context.Context, record ProgressRecord) error {
	answersJSON, err := json.Marshal(record.Answers)
	if err != nil {
		return err
	}

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO user_progress (user_id, section_id, current_index, answers_json, score, updated_at_ns)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, section_id) DO UPDATE SET
			current_index = excluded.current_index,
			answers_json = excluded.answers_json,
			score = excluded.score,
			updated_at_ns = excluded.updated_at_ns`,
		record.UserID,
		record.SectionID,
		record.CurrentIndex,
		string(answersJSON),
		record.Score,
		record.UpdatedAt.UnixNano(),
	)
	return err
}

func (s *SQLiteStore) DeleteProgress(ctx context.Context, userID, sectionID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM user_progress WHERE user_id = ? AND section_id = ?`,
		userID,
		sectionID,
	)
	return err
}
