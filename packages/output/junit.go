package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a test suite, one per category
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single test case
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a test failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError represents a test error
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a skipped test
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// DefaultSuite holds test cases without a category
const DefaultSuite = "default"

// JUnitSink writes accepted nodes as JUnit XML on Flush. Suites are keyed by
// the node's first category.
type JUnitSink struct {
	mu      sync.Mutex
	writer  io.Writer
	baseDir string
	suites  map[string]*JUnitTestSuite
}

type JUnitOption func(*JUnitSink)

func NewJUnitSink(opts ...JUnitOption) *JUnitSink {
	f := &JUnitSink{
		writer: os.Stdout,
		suites: make(map[string]*JUnitTestSuite),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitSink) {
		f.writer = w
	}
}

// JUnitWithBaseDir makes attachment paths relative to dir.
func JUnitWithBaseDir(dir string) JUnitOption {
	return func(f *JUnitSink) {
		f.baseDir = dir
	}
}

func (f *JUnitSink) Accept(node *report.Node) {
	suiteName := DefaultSuite
	if len(node.Categories) > 0 {
		suiteName = node.Categories[0]
	}

	tc := JUnitTestCase{
		Name:      node.Name,
		ClassName: node.Key.Test,
		Time:      node.Duration().Seconds(),
	}

	switch node.Status() {
	case report.StatusSkipped:
		tc.Skipped = &JUnitSkipped{Message: node.FailureMessage}
	case report.StatusFailed:
		if strings.HasPrefix(node.FailureMessage, "unexpected panic") {
			tc.Error = &JUnitError{
				Message: firstLine(node.FailureMessage),
				Type:    "Panic",
				Content: node.FailureMessage,
			}
			break
		}
		tc.Failure = &JUnitFailure{
			Message: firstLine(node.FailureMessage),
			Type:    "AssertionError",
			Content: node.FailureMessage,
		}
	}

	var out strings.Builder
	for _, line := range node.Description {
		fmt.Fprintf(&out, "%s\n", line)
	}
	for _, ev := range node.Evidence {
		fmt.Fprintf(&out, "[[ATTACHMENT|%s]]\n", relativeEvidence(f.baseDir, ev.Path))
	}
	tc.SystemOut = out.String()

	f.mu.Lock()
	defer f.mu.Unlock()

	suite, ok := f.suites[suiteName]
	if !ok {
		suite = &JUnitTestSuite{
			Name:      suiteName,
			Timestamp: node.StartTime.Format(time.RFC3339),
		}
		f.suites[suiteName] = suite
	}
	suite.Tests++
	suite.Time += tc.Time
	if tc.Failure != nil {
		suite.Failures++
	}
	if tc.Error != nil {
		suite.Errors++
	}
	if tc.Skipped != nil {
		suite.Skipped++
	}
	suite.TestCases = append(suite.TestCases, tc)
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitSink) Flush(summary RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.suites))
	for name := range f.suites {
		names = append(names, name)
	}
	sort.Strings(names)

	name := summary.Name
	if name == "" {
		name = "hitreport"
	}
	suites := JUnitTestSuites{
		Name:      name,
		Errors:    summary.Leaked,
		Time:      summary.Duration.Seconds(),
		Timestamp: runTime(summary).Format(time.RFC3339),
	}
	for _, n := range names {
		suite := f.suites[n]
		suites.Tests += suite.Tests
		suites.Failures += suite.Failures
		suites.Skipped += suite.Skipped
		suites.Errors += suite.Errors
		suites.TestSuites = append(suites.TestSuites, *suite)
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	return encoder.Encode(suites)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
