package softassert

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitreport/packages/assertions"
)

// AggregatedError is returned by Session.Finalize when one or more checks failed.
type AggregatedError struct {
	Test     string
	Failures []Record
}

func (e *AggregatedError) Error() string {
	var sb strings.Builder
	if e.Test != "" {
		fmt.Fprintf(&sb, "Following soft asserts failed in %s():", e.Test)
	} else {
		sb.WriteString("Following soft asserts failed:")
	}
	for _, f := range e.Failures {
		sb.WriteString("\n  ")
		sb.WriteString(f.describe())
	}
	return sb.String()
}

// Messages returns the failing check messages in recording order.
func (e *AggregatedError) Messages() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Message
	}
	return out
}

func (r Record) describe() string {
	var sb strings.Builder
	if strings.TrimSpace(r.Message) != "" {
		fmt.Fprintf(&sb, "%q ", r.Message)
	}
	fmt.Fprintf(&sb, "failed because the expected value of [%v] was different from the actual value [%v]", r.Expected, r.Actual)
	if r.Detail != "" && r.Kind != assertions.KindPredicate && r.Kind != assertions.KindEquals {
		fmt.Fprintf(&sb, " (%s)", r.Detail)
	}
	return sb.String()
}
