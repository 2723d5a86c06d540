package stack

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Output is one resulting resource identifier or endpoint exposed by a
// deployed stack.
type Output struct {
	// Key is the output name.
	Key string
	// Value is the resolved identifier or endpoint.
	Value string
	// Description is the template's description of the output, if any.
	Description string
}

// Outputs retrieves the structured output set of a stack. It is a pure read:
// a failure here never undoes a completed deployment and callers report it as
// a soft warning rather than a deployment failure.
func (d *Deployer) Outputs(ctx context.Context, name string) ([]Output, error) {
	stk, state, err := d.Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	if stk == nil {
		return nil, fmt.Errorf("stack %q does not exist", name)
	}
	if state != StateComplete {
		return nil, fmt.Errorf("stack %q is %s; outputs are only reported for COMPLETE stacks", name, state)
	}

	out := make([]Output, 0, len(stk.Outputs))
	for _, o := range stk.Outputs {
		out = append(out, Output{
			Key:         aws.ToString(o.OutputKey),
			Value:       aws.ToString(o.OutputValue),
			Description: aws.ToString(o.Description),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// RenderOutputs writes the output set as an aligned table.
func RenderOutputs(w io.Writer, stackName string, outputs []Output) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Outputs of stack %s:\n", stackName)
	for _, o := range outputs {
		if o.Description != "" {
			fmt.Fprintf(tw, "  %s\t%s\t# %s\n", o.Key, o.Value, o.Description)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\n", o.Key, o.Value)
	}
	return tw.Flush()
}
