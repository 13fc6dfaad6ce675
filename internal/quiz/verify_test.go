package quiz

import (
	"context"
	"testing"

	"sqlquiz/internal/sqlengine"
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	return NewVerifier(sqlengine.NewEngine("sqlite3"))
}

func sqlTestQuestion() Question {
	return Question{
		SectionID:      "sql-1",
		QuestionID:     1,
		Kind:           QuestionSQL,
		Prompt:         "Select every x.",
		Setup:          []string{"CREATE TABLE t(x INT)", "INSERT INTO t VALUES (1)"},
		ReferenceQuery: "SELECT x FROM t",
	}
}

func TestVerifyChoiceIsCaseSensitive(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	question := Question{
		Kind:    QuestionChoice,
		Options: []string{"Paris", "Lyon"},
		Answer:  "Paris",
	}

	if result := verifier.Verify(ctx, question, "Paris"); !result.Correct || result.Reason != ReasonMatched {
		t.Fatalf("exact match must score correct, got %+v", result)
	}
	if result := verifier.Verify(ctx, question, "paris"); result.Correct || result.Reason != ReasonWrongChoice {
		t.Fatalf("case variation must not match, got %+v", result)
	}
	if result := verifier.Verify(ctx, question, "Lyon"); result.Correct {
		t.Fatalf("wrong option scored correct: %+v", result)
	}
}

func TestVerifySQLEquivalentQueryScoresCorrect(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	// Different SQL text, same result set.
	result := verifier.Verify(ctx, sqlTestQuestion(), "SELECT x FROM t WHERE x=1")
	if !result.Correct || result.Reason != ReasonMatched {
		t.Fatalf("equivalent query must score correct, got %+v", result)
	}
}

func TestVerifySQLReferenceQueryAlwaysCorrect(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	question := sqlTestQuestion()
	result := verifier.Verify(ctx, question, question.ReferenceQuery)
	if !result.Correct {
		t.Fatalf("submitting the reference query must score correct, got %+v", result)
	}
}

func TestVerifySQLUserErrorIsOrdinary(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	// Invalid column on the user side: incorrect, no crash, and the
	// reference instance is still released (verified by the next submission
	// working from fresh instances).
	result := verifier.Verify(ctx, sqlTestQuestion(), "SELECT y FROM t")
	if result.Correct || result.Reason != ReasonUserQueryError {
		t.Fatalf("expected user_query_error, got %+v", result)
	}

	again := verifier.Verify(ctx, sqlTestQuestion(), "SELECT x FROM t")
	if !again.Correct {
		t.Fatalf("verifier unusable after user error: %+v", again)
	}
}

func TestVerifySQLResultMismatch(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	result := verifier.Verify(ctx, sqlTestQuestion(), "SELECT x FROM t WHERE x=2")
	if result.Correct || result.Reason != ReasonResultMismatch {
		t.Fatalf("expected result_mismatch, got %+v", result)
	}
}

func TestVerifySQLColumnNameMatters(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	result := verifier.Verify(ctx, sqlTestQuestion(), "SELECT x AS y FROM t")
	if result.Correct || result.Reason != ReasonResultMismatch {
		t.Fatalf("renamed column must not match, got %+v", result)
	}
}

func TestVerifySQLSubmissionsAreIsolated(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	// First submission mutates its sandbox; the second must still be
	// evaluated against freshly initialized instances.
	first := verifier.Verify(ctx, sqlTestQuestion(), "INSERT INTO t VALUES (99)")
	if first.Correct {
		t.Fatalf("mutating statement scored correct: %+v", first)
	}

	second := verifier.Verify(ctx, sqlTestQuestion(), "SELECT x FROM t")
	if !second.Correct {
		t.Fatalf("earlier mutation leaked into later evaluation: %+v", second)
	}
}

func TestVerifySQLSetupFailureIsContentDefect(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	question := sqlTestQuestion()
	question.Setup = []string{"CREATE TABLE t(x INT)", "INSERT INTO missing VALUES (1)"}

	result := verifier.Verify(ctx, question, "SELECT x FROM t")
	if result.Correct || result.Reason != ReasonSetupError {
		t.Fatalf("expected setup_error, got %+v", result)
	}
}

func TestVerifySQLReferenceFailureIsContentDefect(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	question := sqlTestQuestion()
	question.ReferenceQuery = "SELECT z FROM t"

	result := verifier.Verify(ctx, question, "SELECT x FROM t")
	if result.Correct || result.Reason != ReasonReferenceError {
		t.Fatalf("expected reference_error, got %+v", result)
	}
}

func TestVerifySQLEngineUnavailableDegrades(t *testing.T) {
	verifier := NewVerifier(sqlengine.NewEngine("driver_that_does_not_exist"))
	ctx := context.Background()

	result := verifier.Verify(ctx, sqlTestQuestion(), "SELECT x FROM t")
	if result.Correct || result.Reason != ReasonEngineUnavailable {
		t.Fatalf("expected engine_unavailable, got %+v", result)
	}
}
