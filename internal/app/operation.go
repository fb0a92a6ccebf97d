package app

import "time"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one CLI invocation for logging and error-log naming.
type Operation struct {
	RunID      string
	Name       string
	Parameters string
	Status     string
	StartedAt  time.Time
}

// NewOperation creates an operation that is successful until Fail is called.
func NewOperation(runID, name, parameters string, startedAt time.Time) *Operation {
	return &Operation{
		RunID:      runID,
		Name:       name,
		Parameters: parameters,
		Status:     StatusSuccess,
		StartedAt:  startedAt,
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = StatusError
}

// Failed reports whether Fail was called.
func (op *Operation) Failed() bool {
	return op.Status == StatusError
}
