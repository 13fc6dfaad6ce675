package quiz

import (
	"testing"
)

func TestBuildSectionsDenormalizesAndTags(t *testing.T) {
	sections, questions := BuildSections(testDocument(1))

	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Position != 0 || sections[1].Position != 1 {
		t.Fatalf("section positions not assigned in document order: %+v", sections)
	}

	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	for _, question := range questions {
		if question.SectionID == "" {
			t.Fatalf("question not stamped with owning section: %+v", question)
		}
		switch question.Kind {
		case QuestionChoice:
			if question.Answer == "" || len(question.Options) == 0 {
				t.Fatalf("choice variant missing fields: %+v", question)
			}
			if question.ReferenceQuery != "" || len(question.Setup) != 0 {
				t.Fatalf("choice variant carries sql fields: %+v", question)
			}
		case QuestionSQL:
			if question.ReferenceQuery == "" {
				t.Fatalf("sql variant missing reference query: %+v", question)
			}
			if question.Answer != "" || len(question.Options) != 0 {
				t.Fatalf("sql variant carries choice fields: %+v", question)
			}
		default:
			t.Fatalf("question without a kind tag: %+v", question)
		}
	}
}

func TestProgressRecordCloneIsDeep(t *testing.T) {
	original := ProgressRecord{
		UserID:    "u",
		SectionID: "s",
		Answers:   map[int64]string{1: "Paris"},
	}

	clone := original.Clone()
	clone.Answers[2] = "4"

	if _, leaked := original.Answers[2]; leaked {
		t.Fatalf("clone shares the answers map with the original")
	}
}
