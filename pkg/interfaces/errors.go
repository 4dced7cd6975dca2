/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error taxonomy for the Akira ABC-SMC sampler. Configuration and
checkpoint errors are fatal and surfaced before any sampling begins; evaluation
errors are recovered per-proposal; proposal exhaustion aborts the run because it
indicates a degenerate kernel/prior combination.
*/

package interfaces

import "fmt"

// ConfigurationError reports an invalid parameter or parameter combination.
// Always fatal, raised before any sampling work starts.
type ConfigurationError struct {
	Field  string // Offending configuration option
	Reason string // Why the value is rejected
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ProposalExhaustedError reports that the perturbation kernel (or the prior
// rejection loop) could not produce enough accepted particles within the
// configured draw budget.
type ProposalExhaustedError struct {
	Iteration int // Iteration that failed
	Draws     int // Draws spent before giving up
}

func (e *ProposalExhaustedError) Error() string {
	return fmt.Sprintf("proposal exhausted at iteration %d after %d draws", e.Iteration, e.Draws)
}

// EvaluationError wraps a failure inside the user-supplied simulation or
// distance function. Recovered locally: the proposal is treated as rejected
// with infinite distance and the run continues.
type EvaluationError struct {
	Cause error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed: %v", e.Cause)
}

func (e *EvaluationError) Unwrap() error { return e.Cause }

// CheckpointError reports a corrupt or unreadable restart file. Fatal: a run
// asked to resume from broken state must not silently start over.
type CheckpointError struct {
	Path  string
	Cause error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s: %v", e.Path, e.Cause)
}

func (e *CheckpointError) Unwrap() error { return e.Cause }
