package quiz

import (
	"context"
	"errors"
)

var (
	ErrSectionNotFound   = errors.New("section not found")
	ErrNoSectionSelected = errors.New("no section selected")
	ErrNoActiveQuestion  = errors.New("no active question")
)

// SectionStore is the read side of the seeded content.
type SectionStore interface {
	GetSections(ctx context.Context) ([]Section, error)
	GetSection(ctx context.Context, sectionID string) (Section, bool, error)
	GetQuestions(ctx context.Context, sectionID string) ([]Question, error)
}

// ProgressStore owns the (user, section) progress rows. PutProgress is an
// upsert; GetAllProgress carries no ordering guarantee.
type ProgressStore interface {
	GetProgress(ctx context.Context, userID, sectionID string) (ProgressRecord, bool, error)
	GetAllProgress(ctx context.Context, userID string) ([]ProgressRecord, error)
	PutProgress(ctx context.Context, record ProgressRecord) error
	DeleteProgress(ctx context.Context, userID, sectionID string) error
}

// AnswerVerifier decides correctness for one submission.
type AnswerVerifier interface {
	Verify(ctx context.Context, question Question, answer string) Result
}
