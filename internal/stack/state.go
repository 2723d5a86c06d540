// Package stack implements the deployment orchestration core: building the
// deployment request, submitting it to the control plane, polling to a
// terminal state, reporting outputs, and reversing the process for teardown.
package stack

import (
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// State is the orchestrator's view of a stack lifecycle state. Transitions
// are driven by the control plane; the orchestrator only observes and reacts.
type State string

const (
	// StateAbsent means no stack with the given name exists.
	StateAbsent State = "ABSENT"
	// StateInProgress means a create or update operation is running.
	StateInProgress State = "IN_PROGRESS"
	// StateComplete means the last create or update finished successfully.
	StateComplete State = "COMPLETE"
	// StateFailed means the last operation failed and requires manual remediation.
	StateFailed State = "FAILED"
	// StateRolledBack means the control plane reverted the last operation.
	StateRolledBack State = "ROLLED_BACK"
	// StateDeleteInProgress means a deletion is running.
	StateDeleteInProgress State = "DELETE_IN_PROGRESS"
	// StateDeleted means the stack has been deleted.
	StateDeleted State = "DELETED"
)

// Terminal reports whether no further automatic transition occurs without
// new operator action.
func (s State) Terminal() bool {
	switch s {
	case StateAbsent, StateComplete, StateFailed, StateRolledBack, StateDeleted:
		return true
	default:
		return false
	}
}

// Mutating reports whether a control-plane operation is currently running on
// the stack. Submission and teardown are both refused in this state.
func (s State) Mutating() bool {
	return s == StateInProgress || s == StateDeleteInProgress
}

// fromStackStatus collapses the control plane's status vocabulary into the
// orchestrator's state model.
func fromStackStatus(status cfntypes.StackStatus) State {
	switch status {
	case cfntypes.StackStatusCreateComplete,
		cfntypes.StackStatusUpdateComplete,
		cfntypes.StackStatusImportComplete:
		return StateComplete
	case cfntypes.StackStatusRollbackComplete,
		cfntypes.StackStatusUpdateRollbackComplete:
		return StateRolledBack
	case cfntypes.StackStatusCreateFailed,
		cfntypes.StackStatusDeleteFailed,
		cfntypes.StackStatusRollbackFailed,
		cfntypes.StackStatusUpdateFailed,
		cfntypes.StackStatusUpdateRollbackFailed,
		cfntypes.StackStatusImportRollbackFailed:
		return StateFailed
	case cfntypes.StackStatusDeleteInProgress:
		return StateDeleteInProgress
	case cfntypes.StackStatusDeleteComplete:
		return StateDeleted
	default:
		// Every remaining status is an in-flight create/update/rollback/import.
		return StateInProgress
	}
}
