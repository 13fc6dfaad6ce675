package quiz

import (
	"context"

	"github.com/rs/zerolog/log"

	"sqlquiz/internal/sqlengine"
)

// Reasons attached to a verification result. Setup and reference failures are
// content-authoring defects; a user-query failure is ordinary input.
const (
	ReasonMatched           = "matched"
	ReasonWrongChoice       = "wrong_choice"
	ReasonResultMismatch    = "result_mismatch"
	ReasonSetupError        = "setup_error"
	ReasonUserQueryError    = "user_query_error"
	ReasonReferenceError    = "reference_error"
	ReasonEngineUnavailable = "engine_unavailable"
)

// Result is the terminal outcome of one submission. Every submission reaches
// exactly one Result; errors along the way convert to incorrect outcomes.
type Result struct {
	Correct bool
	Reason  string
}

// Verifier scores submissions: direct string equality for choice questions,
// sandboxed dual execution and structural comparison for SQL questions.
type Verifier struct {
	engine *sqlengine.Engine
}

func NewVerifier(engine *sqlengine.Engine) *Verifier {
	return &Verifier{engine: engine}
}

func (v *Verifier) Verify(ctx context.Context, question Question, answer string) Result {
	if question.Kind == QuestionSQL {
		return v.verifySQL(ctx, question, answer)
	}

	// Case-sensitive by design of the content: "Paris" != "paris".
	if answer == question.Answer {
		return Result{Correct: true, Reason: ReasonMatched}
	}
	return Result{Correct: false, Reason: ReasonWrongChoice}
}

// verifySQL replays the question's setup on two fresh, isolated in-memory
// instances, runs the submitted query against one and the reference query
// against the other, and compares the result sets structurally. Both
// instances are released on every exit path.
func (v *Verifier) verifySQL(ctx context.Context, question Question, answer string) Result {
	if err := v.engine.EnsureReady(ctx); err != nil {
		log.Warn().Err(err).Int64("question_id", question.QuestionID).
			Msg("sql engine unavailable, submission marked incorrect")
		return Result{Correct: false, Reason: ReasonEngineUnavailable}
	}

	userDB, err := v.engine.CreateDatabase(ctx)
	if err != nil {
		log.Warn().Err(err).Int64("question_id", question.QuestionID).
			Msg("could not create user sandbox")
		return Result{Correct: false, Reason: ReasonEngineUnavailable}
	}
	defer userDB.Close()

	referenceDB, err := v.engine.CreateDatabase(ctx)
	if err != nil {
		log.Warn().Err(err).Int64("question_id", question.QuestionID).
			Msg("could not create reference sandbox")
		return Result{Correct: false, Reason: ReasonEngineUnavailable}
	}
	defer referenceDB.Close()

	// Setup statements replay strictly in order, identically on both
	// instances. A failure here is a content defect, never a user error.
	for _, statement := range question.Setup {
		if err := userDB.Execute(ctx, statement); err != nil {
			log.Error().Err(err).Int64("question_id", question.QuestionID).
				Str("statement", statement).Msg("setup statement failed: content defect")
			return Result{Correct: false, Reason: ReasonSetupError}
		}
		if err := referenceDB.Execute(ctx, statement); err != nil {
			log.Error().Err(err).Int64("question_id", question.QuestionID).
				Str("statement", statement).Msg("setup statement failed: content defect")
			return Result{Correct: false, Reason: ReasonSetupError}
		}
	}

	userResult, err := userDB.Query(ctx, answer)
	if err != nil {
		// Invalid SQL from the user is expected and ordinary.
		log.Debug().Err(err).Int64("question_id", question.QuestionID).
			Msg("user query failed")
		return Result{Correct: false, Reason: ReasonUserQueryError}
	}

	referenceResult, err := referenceDB.Query(ctx, question.ReferenceQuery)
	if err != nil {
		log.Error().Err(err).Int64("question_id", question.QuestionID).
			Msg("reference query failed: content defect")
		return Result{Correct: false, Reason: ReasonReferenceError}
	}

	if userResult.Equal(referenceResult) {
		return Result{Correct: true, Reason: ReasonMatched}
	}
	return Result{Correct: false, Reason: ReasonResultMismatch}
}
