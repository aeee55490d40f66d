package models

// WorkflowState is the state of a single ingestion execution.
type WorkflowState string

const (
	StateValidating WorkflowState = "Validating"
	StateWriting    WorkflowState = "Writing"
	StateSucceeded  WorkflowState = "Succeeded"
	StateFailed     WorkflowState = "Failed"
)

// Terminal reports whether no further transitions are possible.
func (s WorkflowState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// WorkflowExecution tracks one run of the ingestion workflow. It is
// ephemeral: it lives only for the duration of the run and is surfaced to
// the caller as the run's result.
type WorkflowExecution struct {
	ID           string
	State        WorkflowState
	AttemptCount int
	LastError    string
}
