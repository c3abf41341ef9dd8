package tagresolver

import (
	"fmt"

	"github.com/sbvh/botcore/errors"
)

// RuleExecutionError reports a malformed or unrecognized rule invocation,
// with the expected shape included so the caller can surface it to a user.
type RuleExecutionError struct {
	Rule            string
	ExpectedFormat  string
	Example         string
	underlying      error
}

func (e *RuleExecutionError) Error() string {
	msg := fmt.Sprintf("rule %q: %s", e.Rule, e.underlying)
	if e.ExpectedFormat != "" {
		msg += fmt.Sprintf(" (expected: %s", e.ExpectedFormat)
		if e.Example != "" {
			msg += fmt.Sprintf(", e.g. %q", e.Example)
		}
		msg += ")"
	}
	return msg
}

func (e *RuleExecutionError) Unwrap() error { return e.underlying }

func newRuleError(rule, format, example string, cause error) error {
	return &RuleExecutionError{
		Rule:           rule,
		ExpectedFormat: format,
		Example:        example,
		underlying:     errors.Wrap(cause, "rule execution failed"),
	}
}
