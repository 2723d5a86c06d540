package stack

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// CheckDurableAcknowledged enforces the durable-store gate: when the stack
// composes components backed by durable stores, their irreversible deletion
// requires an explicit force acknowledgment distinct from the general
// teardown confirmation.
func CheckDurableAcknowledged(stackName string, durable []string, forceAcknowledged bool) error {
	if len(durable) == 0 || forceAcknowledged {
		return nil
	}
	return &TeardownBlockedError{
		StackName: stackName,
		Reason: fmt.Sprintf("components %s are backed by durable stores; deleting them is irreversible data loss, pass --force-delete-data to acknowledge",
			strings.Join(durable, ", ")),
	}
}

// Teardown deletes a stack and polls to a terminal state. Deletion is
// refused while any operation is in flight; a stack that is already absent is
// a successful no-op. Resource deletion ordering is delegated to the control
// plane, which reverses the dependency graph used at creation.
func (d *Deployer) Teardown(ctx context.Context, name string) (State, error) {
	current, state, err := d.Describe(ctx, name)
	if err != nil {
		return "", err
	}

	switch {
	case state == StateAbsent || state == StateDeleted:
		d.logger.Info("stack already absent", "stack", name)
		return StateDeleted, nil
	case state.Mutating():
		return state, &TeardownBlockedError{
			StackName: name,
			Reason:    fmt.Sprintf("an operation is in flight (%s); wait for a terminal state", state),
		}
	}

	// Poll by stack ID: once deletion finishes, the name no longer resolves.
	pollTarget := name
	if current != nil {
		if id := aws.ToString(current.StackId); id != "" {
			pollTarget = id
		}
	}

	d.logger.Info("deleting stack", "stack", name)
	if _, err := d.api.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(name),
	}); err != nil {
		return state, fmt.Errorf("delete stack %q: %w", name, err)
	}

	final, stk, err := d.await(ctx, pollTarget)
	if err != nil {
		return final, err
	}
	switch final {
	case StateDeleted, StateAbsent:
		d.logger.Info("stack deleted", "stack", name)
		return StateDeleted, nil
	default:
		return final, &DeploymentFailureError{
			StackName: name,
			State:     final,
			Reason:    statusReason(stk),
		}
	}
}
