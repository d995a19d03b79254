package workflow

import "errors"

var (
	// ErrMissingFinalAnswer is returned when the run terminates on a
	// SubmitFinalAnswer call whose answer is absent or empty.
	ErrMissingFinalAnswer = errors.New("workflow: final answer missing in the tool call")

	// ErrWorkflowExhausted is returned when the generation loop exceeds
	// its configured bound without submitting an answer.
	ErrWorkflowExhausted = errors.New("workflow: generation budget exhausted")
)
