package main

import (
	"strings"

	"github.com/celestia-astro/astroprobe/config"
	"github.com/celestia-astro/astroprobe/framework"

	"github.com/alessio/shellescape"
)

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// rerunCommand returns a shell command that runs only the specified tests against the same
// target. Secrets are never included; they are expected to come from the same config file or
// environment as before.
func rerunCommand(program string, cfg config.Config, configFile string, failures []framework.TestResult) string {
	var b commandBuilder
	b.add(program, "run", "--url", cfg.BaseURL)
	if configFile != "" {
		b.add("--config", configFile)
	}
	for _, c := range cfg.Capabilities {
		b.add("--capability", c)
	}
	for _, id := range rerunIDs(failures) {
		b.add("--run", framework.ExactTestPattern(id))
	}
	return b.String()
}

// rerunIDs drops failures that are already covered by a failed ancestor.
func rerunIDs(failures []framework.TestResult) []framework.TestID {
	var ret []framework.TestID
	for _, f := range failures {
		covered := false
		for _, other := range failures {
			if f.TestID.IsDescendantOf(other.TestID) {
				covered = true
				break
			}
		}
		for _, id := range ret {
			if id.Equal(f.TestID) {
				covered = true
			}
		}
		if !covered {
			ret = append(ret, f.TestID)
		}
	}
	return ret
}
