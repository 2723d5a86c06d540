package stack

import (
	"errors"
	"fmt"
)

// ConcurrentDeploymentError indicates another operation is already in flight
// on the target stack. The invocation fails fast instead of queueing.
type ConcurrentDeploymentError struct {
	// StackName is the contended stack.
	StackName string
	// State is the observed in-flight state.
	State State
}

func (e *ConcurrentDeploymentError) Error() string {
	if e == nil {
		return "concurrent deployment"
	}
	return fmt.Sprintf("stack %q has an operation in flight (%s); retry after it reaches a terminal state", e.StackName, e.State)
}

// IsConcurrentDeploymentError reports whether err is a ConcurrentDeploymentError.
func IsConcurrentDeploymentError(err error) bool {
	var target *ConcurrentDeploymentError
	return errors.As(err, &target)
}

// DeploymentFailureError indicates the stack reached a failed or rolled-back
// terminal state. The orchestrator never auto-retries; remediation is manual.
type DeploymentFailureError struct {
	// StackName is the affected stack.
	StackName string
	// State is the terminal state observed.
	State State
	// Reason is the control plane's status reason, when available.
	Reason string
}

func (e *DeploymentFailureError) Error() string {
	if e == nil {
		return "deployment failed"
	}
	msg := fmt.Sprintf("stack %q reached %s", e.StackName, e.State)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg + " (inspect stack events and remediate manually)"
}

// IsDeploymentFailureError reports whether err is a DeploymentFailureError.
func IsDeploymentFailureError(err error) bool {
	var target *DeploymentFailureError
	return errors.As(err, &target)
}

// TeardownBlockedError indicates that deletion was refused: either an
// operation is in flight on the stack, or a required acknowledgment for
// durable-store deletion is missing.
type TeardownBlockedError struct {
	// StackName is the stack whose deletion was refused.
	StackName string
	// Reason explains the refusal.
	Reason string
}

func (e *TeardownBlockedError) Error() string {
	if e == nil {
		return "teardown blocked"
	}
	return fmt.Sprintf("teardown of stack %q blocked: %s", e.StackName, e.Reason)
}

// IsTeardownBlockedError reports whether err is a TeardownBlockedError.
func IsTeardownBlockedError(err error) bool {
	var target *TeardownBlockedError
	return errors.As(err, &target)
}
