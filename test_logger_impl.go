package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/celestia-astro/astroprobe/framework"

	"github.com/fatih/color"
)

var (
	passColor = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	skipColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

type ConsoleTestLogger struct {
	Out                  io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	if len(id.Path) == 1 {
		fmt.Fprintf(c.Out, "[%s]\n", id)
	}
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		errColor.Fprintf(c.Out, "    %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, failed bool, detail string, debugOutput framework.CapturedOutput) {
	if failed {
		failColor.Fprint(c.Out, "  FAIL ")
	} else {
		passColor.Fprint(c.Out, "  PASS ")
	}
	fmt.Fprintf(c.Out, "%s%s\n", id, formatDetail(detail))
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(c.Out, "    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	skipColor.Fprint(c.Out, "  SKIP ")
	fmt.Fprintf(c.Out, "%s%s\n", id, formatDetail(reason))
}

func formatDetail(detail string) string {
	if detail == "" {
		return ""
	}
	return " (" + detail + ")"
}
