package quiz

import (
	"time"

	"sqlquiz/internal/content"
)

type SectionKind string

const (
	SectionDate  SectionKind = "date"
	SectionTopic SectionKind = "topic"
)

// Section is a named, ordered group of questions. Immutable after seeding;
// only a full re-seed replaces it.
type Section struct {
	SectionID string      `json:"section_id"`
	Kind      SectionKind `json:"kind"`
	Title     string      `json:"title"`
	Position  int         `json:"position"`
}

type QuestionKind string

const (
	QuestionChoice QuestionKind = "choice"
	QuestionSQL    QuestionKind = "sql"
)

// Question is the tagged variant over the two question shapes. Kind is the
// discriminant; the choice fields and the SQL fields are populated exclusively.
type Question struct {
	SectionID   string       `json:"section_id"`
	QuestionID  int64        `json:"question_id"`
	Kind        QuestionKind `json:"kind"`
	Prompt      string       `json:"prompt"`
	Explanation string       `json:"explanation"`
	Position    int          `json:"position"`

	// Choice variant.
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer,omitempty"`

	// SQL variant.
	Setup          []string `json:"setup,omitempty"`
	ReferenceQuery string   `json:"reference_query,omitempty"`
}

// ProgressRecord is the persisted state of one user's attempt at one section,
// keyed by (UserID, SectionID). The tracker's cache of these is always
// re-derivable from the store.
type ProgressRecord struct {
	UserID       string           `json:"user_id"`
	SectionID    string           `json:"section_id"`
	CurrentIndex int              `json:"current_index"`
	Answers      map[int64]string `json:"answers"`
	Score        int              `json:"score"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Clone returns a deep copy so persisted values are plain snapshots, never
// live references to mutable working state.
func (p ProgressRecord) Clone() ProgressRecord {
	answers := make(map[int64]string, len(p.Answers))
	for id, answer := range p.Answers {
		answers[id] = answer
	}
	p.Answers = answers
	return p
}

// BuildSections flattens a validated content document into domain rows:
// ordered sections plus questions denormalized with their owning section id.
func BuildSections(doc content.Document) ([]Section, []Question) {
	sections := make([]Section, 0, len(doc.Sections))
	questions := make([]Question, 0)

	for sectionIdx, raw := range doc.Sections {
		sections = append(sections, Section{
			SectionID: raw.ID,
			Kind:      SectionKind(raw.Type),
			Title:     raw.Title,
			Position:  sectionIdx,
		})

		for questionIdx, rawQuestion := range raw.Questions {
			question := Question{
				SectionID:   raw.ID,
				QuestionID:  rawQuestion.ID,
				Prompt:      rawQuestion.Question,
				Explanation: rawQuestion.Explanation,
				Position:    questionIdx,
			}
			if rawQuestion.IsSQL {
				question.Kind = QuestionSQL
				question.Setup = append([]string(nil), rawQuestion.InitialData...)
				question.ReferenceQuery = rawQuestion.ExpectedResult
			} else {
				question.Kind = QuestionChoice
				question.Options = append([]string(nil), rawQuestion.Options...)
				question.Answer = rawQuestion.Answer
			}
			questions = append(questions, question)
		}
	}

	return sections, questions
}
