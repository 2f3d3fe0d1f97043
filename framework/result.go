package framework

import (
	"strings"
	"time"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID     TestID
	Errors     []error
	Skipped    bool
	SkipReason string
	Detail     string
	StartTime  time.Time
	Duration   time.Duration
}

// Failed is true if the test ran and recorded at least one error.
func (r TestResult) Failed() bool {
	return !r.Skipped && len(r.Errors) != 0
}

func (r *Results) add(result TestResult, failed bool) {
	r.Tests = append(r.Tests, result)
	if failed {
		r.Failures = append(r.Failures, result)
	}
}

func (r *Results) addSkipped(id TestID, reason string) {
	r.Tests = append(r.Tests, TestResult{TestID: id, Skipped: true, SkipReason: reason, StartTime: time.Now()})
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Leaves returns only the results of tests that had no subtests of their own. Group
// tests such as "API health" contain the actual tests, and counting both would
// inflate the totals.
func (r Results) Leaves() []TestResult {
	var ret []TestResult
	for i, t := range r.Tests {
		isParent := false
		for j, other := range r.Tests {
			if i != j && other.TestID.IsDescendantOf(t.TestID) {
				isParent = true
				break
			}
		}
		if !isParent {
			ret = append(ret, t)
		}
	}
	return ret
}

// Counts returns the number of passed, failed, and skipped leaf tests.
func (r Results) Counts() (passed, failed, skipped int) {
	for _, t := range r.Leaves() {
		switch {
		case t.Skipped:
			skipped++
		case r.isFailure(t.TestID):
			failed++
		default:
			passed++
		}
	}
	return
}

// SuccessRate is the percentage of executed (non-skipped) leaf tests that passed.
func (r Results) SuccessRate() float64 {
	passed, failed, _ := r.Counts()
	if passed+failed == 0 {
		return 0
	}
	return float64(passed) * 100 / float64(passed+failed)
}

func (r Results) isFailure(id TestID) bool {
	for _, f := range r.Failures {
		if f.TestID.Equal(id) {
			return true
		}
	}
	return false
}

// Merge appends the tests and failures of other, preserving order.
func (r Results) Merge(other Results) Results {
	return Results{
		Tests:    append(append([]TestResult(nil), r.Tests...), other.Tests...),
		Failures: append(append([]TestResult(nil), r.Failures...), other.Failures...),
	}
}

type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// Plus returns a new TestID for a subtest of this one.
func (t TestID) Plus(name string) TestID {
	return TestID{Path: append(append([]string(nil), t.Path...), name)}
}

func (t TestID) Equal(other TestID) bool {
	if len(t.Path) != len(other.Path) {
		return false
	}
	for i := range t.Path {
		if t.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}

// IsDescendantOf is true if this test is a subtest (at any depth) of ancestor.
func (t TestID) IsDescendantOf(ancestor TestID) bool {
	if len(t.Path) <= len(ancestor.Path) {
		return false
	}
	for i := range ancestor.Path {
		if t.Path[i] != ancestor.Path[i] {
			return false
		}
	}
	return true
}

// Passed returns the number of leaf tests that ran without failing.
func (r Results) Passed() int {
	passed, _, _ := r.Counts()
	return passed
}
