package client

import (
	"fmt"
	"sort"

	"github.com/worldtick/worldtick/pkg/tick1/model"
)

// Emitter is an interface for emitting measurement events and results.
type Emitter interface {
	// OnStart is called when a target's measurement starts.
	OnStart(hostname string, target model.Target)
	// OnOutcome is called once per target when its outcome is ready.
	OnOutcome(o model.Outcome)
	// OnError is called when a target's measurement fails.
	OnError(hostname string, err error)
	// OnSummary is called with every outcome once all targets have
	// completed or failed.
	OnSummary(outcomes []model.Outcome)
	// OnDebug is called to print debug information.
	OnDebug(msg string)
}

// HumanReadable prints human-readable output to stdout. It can be
// configured to include debug output, too.
type HumanReadable struct {
	Debug bool
}

// OnStart prints the hostname being measured.
func (HumanReadable) OnStart(hostname string, target model.Target) {
	fmt.Printf("Measuring %s (%s)\n", hostname, target.Label)
}

// OnOutcome does not print individual outcomes in this Emitter; the
// summary lists every outcome.
func (HumanReadable) OnOutcome(o model.Outcome) {
	// NOTHING - see OnSummary.
}

// OnError prints a notice naming the failing host.
func (HumanReadable) OnError(hostname string, err error) {
	fmt.Printf("%s: measurement failed: %v\n", hostname, err)
}

// OnSummary prints all outcomes sorted by MinRTT, failed targets last.
func (HumanReadable) OnSummary(outcomes []model.Outcome) {
	sorted := make([]model.Outcome, len(outcomes))
	copy(sorted, outcomes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Failed() != sorted[j].Failed() {
			return !sorted[i].Failed()
		}
		return sorted[i].MinRTT < sorted[j].MinRTT
	})

	fmt.Println()
	fmt.Printf("World results:\n")
	for _, o := range sorted {
		if o.Failed() {
			fmt.Printf("  %-8s %-16s unreachable\n", o.Target, o.Label)
			continue
		}
		fmt.Printf("  %-8s %-16s min/max: %d/%d ms (%d samples)\n",
			o.Target, o.Label, o.MinRTT.Milliseconds(), o.MaxRTT.Milliseconds(),
			o.Samples)
	}
}

// OnDebug is called to print debug information.
func (e HumanReadable) OnDebug(msg string) {
	if e.Debug {
		fmt.Printf("DEBUG: %s\n", msg)
	}
}

// Checks that HumanReadable implements Emitter.
var _ Emitter = &HumanReadable{}
