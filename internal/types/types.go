// Package types defines shared types used across the application.
package types

import "time"

// RunStatus is the terminal status of a reservation run.
type RunStatus string

const (
	StatusReserved        RunStatus = "reserved"
	StatusAlreadyReserved RunStatus = "already-reserved"
	StatusFailed          RunStatus = "failed"
)

// OutcomeKind enumerates the possible step outcomes.
type OutcomeKind int

const (
	OutcomeContinue OutcomeKind = iota
	OutcomeAlreadyReserved
	OutcomeSucceeded
	OutcomeFailed
)

// StepOutcome is the result of a single workflow step and drives the
// transition to the next one.
type StepOutcome struct {
	Kind   OutcomeKind
	Reason string // set for OutcomeFailed
}

// Continue signals that the workflow should proceed to the next step.
func Continue() StepOutcome { return StepOutcome{Kind: OutcomeContinue} }

// AlreadyReserved terminates the run because a reservation already exists.
func AlreadyReserved() StepOutcome { return StepOutcome{Kind: OutcomeAlreadyReserved} }

// Succeeded terminates the run after a confirmed reservation.
func Succeeded() StepOutcome { return StepOutcome{Kind: OutcomeSucceeded} }

// Failed terminates the run with the given reason, eg "login".
func Failed(reason string) StepOutcome {
	return StepOutcome{Kind: OutcomeFailed, Reason: reason}
}

// StepStat records how a single step went, for the run summary.
type StepStat struct {
	Name     string        `json:"name"`
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// RunResult is the final summary of one reservation run.
type RunResult struct {
	Status     RunStatus  `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	FailedStep string     `json:"failedStep,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Steps      []StepStat `json:"steps"`
}
