// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError names the failed operation, the resource involved and
	// what the user can do about it.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("load project metadata").
	//		WithResource("pyp.json").
	//		WithSuggestion("Run 'spvm init' to create it").
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "publish to pypi".
		Operation string
		// Resource is the file, package or destination involved. Optional.
		Resource string
		// Suggestions are remediation hints, one per line.
		Suggestions []string
		// Issue links a catalog entry with extended help. Zero when none.
		Issue Id
		// Cause is the underlying error.
		Cause error
	}

	// ErrorContext builds an ActionableError incrementally.
	ErrorContext struct {
		operation   string
		resource    string
		suggestions []string
		issue       Id
		cause       error
	}
)

// NewErrorContext returns an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation is the shorthand for an error with only an operation.
// A nil err yields nil.
func WrapWithOperation(err error, operation string) error {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Cause: err}
}

// Error renders "failed to <operation>: <resource>: <cause>".
func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error followed by its suggestions as a bullet list.
// With verbose set the numbered cause chain is appended.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, s := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(s)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			depth++
		}
	}
	return msg.String()
}

// HasSuggestions reports whether any suggestion is attached.
func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// WithOperation sets the operation, a verb phrase.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

// WithResource sets the resource involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion appends one suggestion.
func (c *ErrorContext) WithSuggestion(s string) *ErrorContext {
	c.suggestions = append(c.suggestions, s)
	return c
}

// WithSuggestions appends several suggestions.
func (c *ErrorContext) WithSuggestions(s ...string) *ErrorContext {
	c.suggestions = append(c.suggestions, s...)
	return c
}

// WithIssue links a catalog entry.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.issue = id
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build returns the ActionableError, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}
	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Issue:       c.issue,
		Cause:       c.cause,
	}
}

// BuildError is Build typed as error, so a missing operation yields a true nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}

// IssueOf returns the catalog entry linked anywhere in err's chain.
func IssueOf(err error) (*Issue, bool) {
	var ae *ActionableError
	for err != nil {
		if !errors.As(err, &ae) {
			return nil, false
		}
		if ae.Issue != 0 {
			if is := Get(ae.Issue); is != nil {
				return is, true
			}
		}
		err = ae.Cause
	}
	return nil, false
}
