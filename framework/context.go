package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// RunParams controls a single invocation of Run.
type RunParams struct {
	// Filter, if non-nil, decides whether each test is run or reported as skipped.
	Filter Filter

	// TestLogger receives progress notifications. If nil, nothing is reported.
	TestLogger TestLogger

	// DelayBetweenTests is a pause inserted before every test after the first one, so
	// that a live deployment is not hit with a burst of requests.
	DelayBetweenTests time.Duration
}

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
	delay      time.Duration
	started    bool
}

// Context represents a test or subtest. It plays the same role as Go's *testing.T, but
// outside of the Go test runner.
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	detail      string
	errors      []error
	cleanups    []func()
	startTime   time.Time
	group       bool
}

// Run executes a root action and returns the accumulated results of all the subtests
// that it ran with Context.Run.
func Run(params RunParams, action func(*Context)) Results {
	testLogger := params.TestLogger
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     params.Filter,
		testLogger: testLogger,
		delay:      params.DelayBetweenTests,
	}
	c := &Context{env: env, startTime: time.Now()}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		if r := recover(); r != nil {
			if c.skipped {
				// errors reported before the skip do not count against the test
				c.failed = false
			} else {
				c.failed = true
				var addError error
				if _, ok := r.(*Context); ok {
					if len(c.errors) == 0 {
						addError = errors.New("test failed with no failure message")
					}
				} else {
					addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
				}
				if addError != nil {
					c.errors = append(c.errors, addError)
					c.env.testLogger.TestError(c.id, addError)
				}
			}
		}
		c.runCleanups()
		if len(c.id.Path) == 0 || (c.group && !c.failed) {
			return // the root and groups are not tests in themselves
		}
		result := TestResult{
			TestID:     c.id,
			Errors:     c.errors,
			Skipped:    c.skipped,
			SkipReason: c.skipReason,
			Detail:     c.detail,
			StartTime:  c.startTime,
			Duration:   time.Since(c.startTime),
		}
		c.env.results.add(result, c.failed)
	}()

	action(c)
}

func (c *Context) runCleanups() {
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.Debug("cleanup panicked: %v", r)
				}
			}()
			c.cleanups[i]()
		}()
	}
	c.cleanups = nil
}

// ID returns the full identifier of this test.
func (c *Context) ID() TestID {
	return c.id
}

// Run runs a subtest with the given name.
func (c *Context) Run(name string, action func(*Context)) {
	id := c.id.Plus(name)

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		reason := "excluded by filter parameters"
		c.env.results.addSkipped(id, reason)
		c.env.testLogger.TestSkipped(id, reason)
		return
	}
	if c.env.started && c.env.delay > 0 {
		time.Sleep(c.env.delay)
	}
	c.env.started = true

	c1 := &Context{
		id:        id,
		env:       c.env,
		startTime: time.Now(),
	}
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, c1.failed, c1.detail, c1.debugLogger.Output())
	}
}

// Group runs a set of related subtests under a common name. Unlike Run, a group is not
// a test in itself: it is never excluded by the filter (the filter is applied to each of
// its subtests instead), and it only appears in the results if the group action itself
// fails outside of any subtest.
func (c *Context) Group(name string, action func(*Context)) {
	id := c.id.Plus(name)
	c.env.testLogger.TestStarted(id)
	c1 := &Context{
		id:        id,
		env:       c.env,
		startTime: time.Now(),
		group:     true,
	}
	c1.run(action)
	if c1.failed {
		c.env.testLogger.TestFinished(id, true, c1.detail, c1.debugLogger.Output())
	}
}

// Errorf records a test failure, but does not stop the test.
func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, err)
}

// Failed returns true if Errorf or FailNow has been called on this test.
func (c *Context) Failed() bool {
	return c.failed
}

// FailNow marks the test as failed and exits it immediately.
func (c *Context) FailNow() {
	c.failed = true
	panic(c)
}

// Skip stops the test without failing it.
func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

// SkipWithReason is the same as Skip, but the reason is reported to the test logger.
func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// Detailf sets a one-line summary of what the test observed. It is shown next to the
// pass/fail status and written to the result file; a later call replaces an earlier one.
func (c *Context) Detailf(format string, args ...interface{}) {
	c.detail = fmt.Sprintf(format, args...)
}

// Defer schedules a function to be called when the test ends, in last-in-first-out order.
func (c *Context) Defer(fn func()) {
	c.cleanups = append(c.cleanups, fn)
}

// Debug adds a line of debug output to this test.
func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger that writes to this test's debug output.
func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}
