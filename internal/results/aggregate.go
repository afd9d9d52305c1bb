// Package results turns JUnit-style test reports into Test API results.
package results

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/animus-labs/tfbridge/internal/domain"
)

type junitSuite struct {
	Name     *string      `xml:"name,attr"`
	Tests    *string      `xml:"tests,attr"`
	Errors   *string      `xml:"errors,attr"`
	Failures *string      `xml:"failures,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitRoot struct {
	Suites []junitSuite `xml:"testsuite"`
}

// suiteList keeps suites in first-seen order; a repeated name replaces the
// earlier entry in place.
type suiteList struct {
	order []domain.SuiteSummary
	index map[string]int
}

func (l *suiteList) put(s domain.SuiteSummary) {
	if l.index == nil {
		l.index = map[string]int{}
	}
	if i, ok := l.index[s.Name]; ok {
		l.order[i] = s
		return
	}
	l.index[s.Name] = len(l.order)
	l.order = append(l.order, s)
}

// Aggregate parses a report and summarizes it for runID. Nested suites are
// visited in document order, parents first.
func Aggregate(report io.Reader, runID string, links Links) (domain.ResultsSummary, error) {
	raw, err := io.ReadAll(report)
	if err != nil {
		return domain.ResultsSummary{}, fmt.Errorf("%w: read: %v", domain.ErrMalformedReport, err)
	}
	suites, err := decode(raw)
	if err != nil {
		return domain.ResultsSummary{}, err
	}

	// overall is sticky over every suite seen, including ones later replaced
	// by name.
	overall := domain.RunResultPassed
	var list suiteList
	var visit func(s junitSuite) error
	visit = func(s junitSuite) error {
		summary, err := summarize(s, runID, links)
		if err != nil {
			return err
		}
		if summary.Result == domain.RunResultFailed {
			overall = domain.RunResultFailed
		}
		list.put(summary)
		for _, child := range s.Suites {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, s := range suites {
		if err := visit(s); err != nil {
			return domain.ResultsSummary{}, err
		}
	}

	return domain.ResultsSummary{Overall: overall, Suites: list.order}, nil
}

func decode(raw []byte) ([]junitSuite, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: no root element", domain.ErrMalformedReport)
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedReport, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "testsuites":
			var root junitRoot
			if err := dec.DecodeElement(&root, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrMalformedReport, err)
			}
			return root.Suites, ensureEOF(dec)
		case "testsuite":
			var suite junitSuite
			if err := dec.DecodeElement(&suite, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrMalformedReport, err)
			}
			return []junitSuite{suite}, ensureEOF(dec)
		default:
			return nil, fmt.Errorf("%w: unexpected root element %q", domain.ErrMalformedReport, start.Name.Local)
		}
	}
}

// ensureEOF rejects trailing elements and broken markup after the root.
func ensureEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedReport, err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			return fmt.Errorf("%w: multiple root elements", domain.ErrMalformedReport)
		}
	}
}

func summarize(s junitSuite, runID string, links Links) (domain.SuiteSummary, error) {
	name := ""
	if s.Name != nil {
		name = *s.Name
	}
	tests, err := count(s.Tests, "tests", name)
	if err != nil {
		return domain.SuiteSummary{}, err
	}
	failed, err := suiteFailed(s, name)
	if err != nil {
		return domain.SuiteSummary{}, err
	}
	result := domain.RunResultPassed
	if failed {
		result = domain.RunResultFailed
	}
	return domain.SuiteSummary{
		Name:   name,
		Result: result,
		Tests:  tests,
		Stage:  domain.SuiteStageComplete,
		Logs:   links.build(runID, name),
	}, nil
}

func suiteFailed(s junitSuite, name string) (bool, error) {
	errs, err := count(s.Errors, "errors", name)
	if err != nil {
		return false, err
	}
	failures, err := count(s.Failures, "failures", name)
	if err != nil {
		return false, err
	}
	return errs+failures > 0, nil
}

func count(attr *string, field, suite string) (int, error) {
	if attr == nil {
		return 0, fmt.Errorf("%w: suite %q has no %s attribute", domain.ErrMalformedReport, suite, field)
	}
	n, err := strconv.Atoi(strings.TrimSpace(*attr))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: suite %q has invalid %s=%q", domain.ErrMalformedReport, suite, field, *attr)
	}
	return n, nil
}
