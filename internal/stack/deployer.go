package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"

	"github.com/vtejapy/new-cft2/internal/config"
)

// API is the slice of the CloudFormation client used by the orchestrator.
// It exists so tests can substitute a mock implementation.
type API interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
	DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
	ValidateTemplate(ctx context.Context, params *cloudformation.ValidateTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ValidateTemplateOutput, error)
}

// Request is the composed deployment request. It is built once per
// invocation and submitted atomically.
type Request struct {
	// StackName is the target stack.
	StackName string
	// TemplateURL points at the published composition template.
	TemplateURL string
	// Parameters holds the resolved parameter set, secrets included.
	Parameters []cfntypes.Parameter
	// Capabilities acknowledges the resource capabilities of the templates.
	Capabilities []cfntypes.Capability
	// Tags records environment, project, and management origin.
	Tags []cfntypes.Tag
}

// managedByTag marks stacks created by this tool.
const managedByTag = "cftctl"

// BuildRequest merges the parameter set with brokered secret values and fixed
// tags into a deployment request. File order is preserved for non-secret
// parameters; secret parameters follow in sorted order.
func BuildRequest(environ *config.Environment, set *config.ParameterSet, secrets map[string]string, templateURL string) (*Request, error) {
	req := &Request{
		StackName:   environ.StackName,
		TemplateURL: templateURL,
		Capabilities: []cfntypes.Capability{
			cfntypes.CapabilityCapabilityIam,
			cfntypes.CapabilityCapabilityNamedIam,
		},
		Tags: []cfntypes.Tag{
			{Key: aws.String("Environment"), Value: aws.String(environ.Name)},
			{Key: aws.String("Project"), Value: aws.String(environ.Project)},
			{Key: aws.String("ManagedBy"), Value: aws.String(managedByTag)},
		},
	}

	for _, key := range set.Parameters.Keys() {
		value, _ := set.Parameters.Get(key)
		req.Parameters = append(req.Parameters, cfntypes.Parameter{
			ParameterKey:   aws.String(key),
			ParameterValue: aws.String(value),
		})
	}

	secretKeys := make([]string, 0, len(set.Secrets))
	secretKeys = append(secretKeys, set.Secrets...)
	sort.Strings(secretKeys)
	for _, key := range secretKeys {
		value, ok := secrets[key]
		if !ok {
			return nil, fmt.Errorf("secret parameter %q was not resolved by the broker", key)
		}
		req.Parameters = append(req.Parameters, cfntypes.Parameter{
			ParameterKey:   aws.String(key),
			ParameterValue: aws.String(value),
		})
	}

	return req, nil
}

// TemplateURL forms the HTTPS location of a published template object.
func TemplateURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

const defaultPollInterval = 10 * time.Second

// Deployer submits deployment requests and observes the stack lifecycle.
type Deployer struct {
	api          API
	logger       *slog.Logger
	pollInterval time.Duration
}

// Option adjusts Deployer behavior.
type Option func(*Deployer)

// WithPollInterval overrides the fixed interval between state polls.
func WithPollInterval(d time.Duration) Option {
	return func(dep *Deployer) {
		if d > 0 {
			dep.pollInterval = d
		}
	}
}

// NewDeployer constructs a Deployer over a control-plane client.
func NewDeployer(client API, logger *slog.Logger, opts ...Option) *Deployer {
	d := &Deployer{api: client, logger: logger, pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDeployerFromConfig constructs a Deployer backed by the real
// CloudFormation service client.
func NewDeployerFromConfig(cfg aws.Config, logger *slog.Logger, opts ...Option) *Deployer {
	return NewDeployer(cloudformation.NewFromConfig(cfg), logger, opts...)
}

// Describe returns the stack record and its collapsed state. An unknown
// stack name yields StateAbsent with a nil record, not an error.
func (d *Deployer) Describe(ctx context.Context, name string) (*cfntypes.Stack, State, error) {
	out, err := d.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		if isDoesNotExist(err) {
			return nil, StateAbsent, nil
		}
		return nil, "", fmt.Errorf("describe stack %q: %w", name, err)
	}
	if len(out.Stacks) == 0 {
		return nil, StateAbsent, nil
	}
	stk := out.Stacks[0]
	return &stk, fromStackStatus(stk.StackStatus), nil
}

// Deploy performs one idempotent create-or-update submission and polls the
// stack to a terminal state. An in-flight operation on the stack is rejected
// with ConcurrentDeploymentError before submission; a FAILED or ROLLED_BACK
// terminal state after submission surfaces as DeploymentFailureError.
// Cancelling ctx stops local observation only; the control plane owns the
// atomicity of the submitted change.
func (d *Deployer) Deploy(ctx context.Context, req *Request) (State, error) {
	current, state, err := d.Describe(ctx, req.StackName)
	if err != nil {
		return "", err
	}
	if state.Mutating() {
		return state, &ConcurrentDeploymentError{StackName: req.StackName, State: state}
	}

	if _, err := d.api.ValidateTemplate(ctx, &cloudformation.ValidateTemplateInput{
		TemplateURL: aws.String(req.TemplateURL),
	}); err != nil {
		return state, fmt.Errorf("control-plane validation of %s: %w", req.TemplateURL, err)
	}

	pollTarget := req.StackName
	switch state {
	case StateAbsent, StateDeleted:
		d.logger.Info("creating stack", "stack", req.StackName)
		out, err := d.api.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:    aws.String(req.StackName),
			TemplateURL:  aws.String(req.TemplateURL),
			Parameters:   req.Parameters,
			Capabilities: req.Capabilities,
			Tags:         req.Tags,
			OnFailure:    cfntypes.OnFailureRollback,
		})
		if err != nil {
			return state, fmt.Errorf("create stack %q: %w", req.StackName, err)
		}
		if id := aws.ToString(out.StackId); id != "" {
			pollTarget = id
		}

	case StateComplete:
		d.logger.Info("updating stack", "stack", req.StackName)
		_, err := d.api.UpdateStack(ctx, &cloudformation.UpdateStackInput{
			StackName:    aws.String(req.StackName),
			TemplateURL:  aws.String(req.TemplateURL),
			Parameters:   req.Parameters,
			Capabilities: req.Capabilities,
			Tags:         req.Tags,
		})
		if err != nil {
			if isNoUpdates(err) {
				d.logger.Info("no changes to apply", "stack", req.StackName)
				return StateComplete, nil
			}
			return state, fmt.Errorf("update stack %q: %w", req.StackName, err)
		}

	default:
		// FAILED or ROLLED_BACK: the control plane will not accept an update
		// and this tool never rolls forward automatically.
		return state, &DeploymentFailureError{
			StackName: req.StackName,
			State:     state,
			Reason:    statusReason(current),
		}
	}

	final, stk, err := d.await(ctx, pollTarget)
	if err != nil {
		return final, err
	}
	if final != StateComplete {
		return final, &DeploymentFailureError{
			StackName: req.StackName,
			State:     final,
			Reason:    statusReason(stk),
		}
	}
	d.logger.Info("stack deployment complete", "stack", req.StackName)
	return final, nil
}

// await polls the stack at the fixed interval until a terminal state.
// There is no orchestrator-level timeout shorter than the control plane's own.
func (d *Deployer) await(ctx context.Context, name string) (State, *cfntypes.Stack, error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		stk, state, err := d.Describe(ctx, name)
		if err != nil {
			return "", nil, err
		}
		if state.Terminal() {
			return state, stk, nil
		}
		d.logger.Debug("stack operation in progress", "stack", name, "state", state)

		select {
		case <-ctx.Done():
			return state, stk, fmt.Errorf("observation of stack %q cancelled; the operation continues on the control plane: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// statusReason extracts the control plane's status reason, if any.
func statusReason(stk *cfntypes.Stack) string {
	if stk == nil {
		return ""
	}
	return aws.ToString(stk.StackStatusReason)
}

// isDoesNotExist reports whether a DescribeStacks error means the stack is absent.
func isDoesNotExist(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "does not exist")
}

// isNoUpdates reports whether an UpdateStack error means the submitted
// request changes nothing. The control plane rejects such updates; the
// orchestrator treats them as a successful no-op.
func isNoUpdates(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
}
