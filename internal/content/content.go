package content

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Document is the versioned content source: an opaque input owned by content
// authors, never mutated by the engine. Version gates re-seeding.
type Document struct {
	Version  int          `json:"version"`
	Sections []RawSection `json:"sections"`
}

type RawSection struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Title     string        `json:"title"`
	Questions []RawQuestion `json:"questions"`
}

// RawQuestion carries both question shapes. The wire format discriminates by
// the presence of initialData: SQL questions have it, choice questions do not.
// Decoding tags the variant explicitly so nothing downstream sniffs fields.
type RawQuestion struct {
	ID          int64  `json:"id"`
	Question    string `json:"question"`
	Explanation string `json:"explanation"`

	// Choice shape.
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer,omitempty"`

	// SQL shape.
	InitialData    []string `json:"initialData,omitempty"`
	ExpectedResult string   `json:"expectedResult,omitempty"`

	IsSQL bool `json:"-"`
}

func (q *RawQuestion) UnmarshalJSON(data []byte) error {
	type plain RawQuestion
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var probe struct {
		InitialData *[]string `json:"initialData"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	*q = RawQuestion(decoded)
	q.IsSQL = probe.InitialData != nil
	return nil
}

// Load reads and validates a content document from disk.
func Load(path string) (Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open content file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode content document: %w", err)
	}

	if err := validate(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// validate rejects the whole document on the first defect; the store must
// never see a partially valid content release.
func validate(doc Document) error {
	if doc.Version < 1 {
		return fmt.Errorf("content version must be >= 1, got %d", doc.Version)
	}

	seenSections := make(map[string]struct{}, len(doc.Sections))
	for _, section := range doc.Sections {
		if section.ID == "" {
			return fmt.Errorf("section with empty id")
		}
		if _, dup := seenSections[section.ID]; dup {
			return fmt.Errorf("duplicate section id %q", section.ID)
		}
		seenSections[section.ID] = struct{}{}

		if section.Type != "date" && section.Type != "topic" {
			return fmt.Errorf("section %q: type must be date or topic, got %q", section.ID, section.Type)
		}

		seenQuestions := make(map[int64]struct{}, len(section.Questions))
		for _, question := range section.Questions {
			if _, dup := seenQuestions[question.ID]; dup {
				return fmt.Errorf("section %q: duplicate question id %d", section.ID, question.ID)
			}
			seenQuestions[question.ID] = struct{}{}

			if question.Question == "" {
				return fmt.Errorf("section %q question %d: empty prompt", section.ID, question.ID)
			}

			if question.IsSQL {
				if question.ExpectedResult == "" {
					return fmt.Errorf("section %q question %d: SQL question without expectedResult", section.ID, question.ID)
				}
				continue
			}

			if len(question.Options) == 0 {
				return fmt.Errorf("section %q question %d: choice question without options", section.ID, question.ID)
			}
			found := false
			for _, option := range question.Options {
				if option == question.Answer {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("section %q question %d: answer %q is not among the options", section.ID, question.ID, question.Answer)
			}
		}
	}

	return nil
}
