package quiz

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Tracker drives one user's session: section navigation, answer recording,
// and reconciliation between working state and the durable store. The cache
// and working fields are never the source of truth; the store is.
//
// Not safe for concurrent use. A submission runs to its terminal outcome
// before the next may begin.
type Tracker struct {
	sections SectionStore
	progress ProgressStore
	verifier AnswerVerifier
	userID   string

	cache map[string]ProgressRecord

	selected    *Section
	questions   []Question
	index       int
	answers     map[int64]string
	score       int
	lastCorrect bool
}

func NewTracker(sections SectionStore, progress ProgressStore, verifier AnswerVerifier, userID string) *Tracker {
	return &Tracker{
		sections: sections,
		progress: progress,
		verifier: verifier,
		userID:   userID,
		cache:    make(map[string]ProgressRecord),
		answers:  make(map[int64]string),
	}
}

// Hydrate loads all persisted progress for the user into the cache.
// Idempotent; the latest store state wins.
func (t *Tracker) Hydrate(ctx context.Context) error {
	records, err := t.progress.GetAllProgress(ctx, t.userID)
	if err != nil {
		return err
	}

	t.cache = make(map[string]ProgressRecord, len(records))
	for _, record := range records {
		t.cache[record.SectionID] = record
	}
	return nil
}

// SelectSection loads a section and its questions, then applies any cached
// progress or resets the working state to defaults.
func (t *Tracker) SelectSection(ctx context.Context, sectionID string) error {
	section, ok, err := t.sections.GetSection(ctx, sectionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSectionNotFound
	}

	questions, err := t.sections.GetQuestions(ctx, sectionID)
	if err != nil {
		return err
	}

	t.selected = &section
	t.questions = questions
	t.resetWorkingState()

	if record, ok := t.cache[sectionID]; ok {
		t.index = record.CurrentIndex
		if t.index > len(t.questions) {
			t.index = len(t.questions)
		}
		t.score = record.Score
		for id, answer := range record.Answers {
			t.answers[id] = answer
		}
	}
	return nil
}

// RecordAnswer verifies the submission against the current question, updates
// working state, and persists a snapshot. A persist failure is logged and the
// working state keeps reflecting the attempt; re-answering is idempotent.
func (t *Tracker) RecordAnswer(ctx context.Context, answer string) (Result, error) {
	if t.selected == nil {
		return Result{}, ErrNoSectionSelected
	}
	question := t.CurrentQuestion()
	if question == nil {
		return Result{}, ErrNoActiveQuestion
	}

	result := t.verifier.Verify(ctx, *question, answer)

	_, answeredBefore := t.answers[question.QuestionID]
	t.answers[question.QuestionID] = answer
	t.lastCorrect = result.Correct
	// Score counts each question at most once so it never exceeds the number
	// of answered questions, even under re-submission.
	if result.Correct && !answeredBefore {
		t.score++
	}

	t.persist(ctx)
	return result, nil
}

// Advance moves to the next question. The index may reach len(questions),
// which marks completion; past that the call is a silent no-op.
func (t *Tracker) Advance(ctx context.Context) {
	if t.selected == nil || t.index >= len(t.questions) {
		return
	}

	t.index++
	t.lastCorrect = false
	t.persist(ctx)
}

// Restart deletes all persisted progress for the section and, if it is the
// selected one, resets the working state to defaults.
func (t *Tracker) Restart(ctx context.Context, sectionID string) error {
	if err := t.progress.DeleteProgress(ctx, t.userID, sectionID); err != nil {
		return err
	}
	delete(t.cache, sectionID)

	if t.selected != nil && t.selected.SectionID == sectionID {
		t.resetWorkingState()
	}
	return nil
}

func (t *Tracker) Sections(ctx context.Context) ([]Section, error) {
	return t.sections.GetSections(ctx)
}

// SectionSummary augments a section with the user's answered count.
type SectionSummary struct {
	Section
	Answered int
	Total    int
}

func (t *Tracker) SectionSummaries(ctx context.Context) ([]SectionSummary, error) {
	sections, err := t.sections.GetSections(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]SectionSummary, 0, len(sections))
	for _, section := range sections {
		questions, err := t.sections.GetQuestions(ctx, section.SectionID)
		if err != nil {
			return nil, err
		}

		answered := 0
		if record, ok := t.cache[section.SectionID]; ok {
			answered = len(record.Answers)
		}
		summaries = append(summaries, SectionSummary{
			Section:  section,
			Answered: answered,
			Total:    len(questions),
		})
	}
	return summaries, nil
}

// CurrentQuestion returns the question at the working index, nil once the
// section is completed or none is selected.
func (t *Tracker) CurrentQuestion() *Question {
	if t.selected == nil || t.index >= len(t.questions) {
		return nil
	}
	question := t.questions[t.index]
	return &question
}

func (t *Tracker) Selected() *Section {
	return t.selected
}

func (t *Tracker) Questions() []Question {
	return t.questions
}

func (t *Tracker) Index() int {
	return t.index
}

func (t *Tracker) Score() int {
	return t.score
}

func (t *Tracker) LastCorrect() bool {
	return t.lastCorrect
}

// Completed reports whether the working index has moved past the last
// question. Completion is index == len(questions); no accessible index ever
// exceeds len-1.
func (t *Tracker) Completed() bool {
	return t.selected != nil && t.index >= len(t.questions)
}

// Answers returns a copy of the recorded answers; the working map stays
// private so callers cannot mutate state the tracker later snapshots.
func (t *Tracker) Answers() map[int64]string {
	answers := make(map[int64]string, len(t.answers))
	for id, answer := range t.answers {
		answers[id] = answer
	}
	return answers
}

func (t *Tracker) resetWorkingState() {
	t.index = 0
	t.answers = make(map[int64]string)
	t.score = 0
	t.lastCorrect = false
}

// persist writes a snapshot of the working state. The snapshot is a plain
// value (cloned answers map), never a live reference. Failures are surfaced
// as a warning only; the in-memory state still reflects the attempt.
func (t *Tracker) persist(ctx context.Context) {
	if t.selected == nil {
		return
	}

	record := ProgressRecord{
		UserID:       t.userID,
		SectionID:    t.selected.SectionID,
		CurrentIndex: t.index,
		Answers:      t.answers,
		Score:        t.score,
		UpdatedAt:    time.Now().UTC(),
	}.Clone()

	t.cache[record.SectionID] = record

	if err := t.progress.PutProgress(ctx, record); err != nil {
		log.Warn().Err(err).Str("section_id", record.SectionID).
			Msg("progress persist failed; working state kept")
	}
}
