package model

import (
	"strconv"
	"time"

	"github.com/worldtick/worldtick/pkg/version"
)

// SentinelRTT is the value recorded in MinRTT and MaxRTT when a
// measurement could not be completed. It is a well-formed result, not an
// error: reporting code must be able to sort and format it.
const SentinelRTT = time.Duration(-1)

// Target identifies one remote game-world endpoint.
type Target struct {
	// ID is the world identifier as read from the target list. Numeric
	// identifiers are rendered as "world<N>" hostnames; any other value
	// is used as a hostname verbatim.
	ID string

	// Label is opaque pass-through data (typically the world's location)
	// carried into the Outcome unchanged.
	Label string
}

// Hostname resolves the target identifier to a DNS hostname. The rule is
// purely textual: a numeric ID becomes "world<N>", anything else passes
// through. A non-empty domain suffix is appended with a dot.
func (t Target) Hostname(domain string) string {
	host := t.ID
	if _, err := strconv.Atoi(t.ID); err == nil {
		host = "world" + t.ID
	}
	if domain != "" {
		host = host + "." + domain
	}
	return host
}

// Outcome is the immutable result of one measurement run against one
// target.
type Outcome struct {
	// Target is the world identifier the measurement ran against.
	Target string
	// Label is the target's label, passed through unmodified.
	Label string

	// MinRTT and MaxRTT are the round-trip envelope observed across all
	// samples, or SentinelRTT for both when the measurement failed.
	MinRTT time.Duration
	MaxRTT time.Duration

	// Samples is the number of timed samples folded into MinRTT/MaxRTT.
	Samples int

	// FailureReason describes why the measurement failed, if it did.
	FailureReason string `json:",omitempty"`
}

// Failed reports whether this outcome is a sentinel failure.
func (o Outcome) Failed() bool {
	return o.MinRTT == SentinelRTT && o.MaxRTT == SentinelRTT
}

// NewOutcome returns a successful outcome for the given target.
func NewOutcome(t Target, min, max time.Duration, samples int) Outcome {
	return Outcome{
		Target:  t.ID,
		Label:   t.Label,
		MinRTT:  min,
		MaxRTT:  max,
		Samples: samples,
	}
}

// FailedOutcome returns the sentinel failure outcome for the given
// target.
func FailedOutcome(t Target, err error) Outcome {
	o := Outcome{
		Target: t.ID,
		Label:  t.Label,
		MinRTT: SentinelRTT,
		MaxRTT: SentinelRTT,
	}
	if err != nil {
		o.FailureReason = err.Error()
	}
	return o
}

// ArchivalData is the archival record for one monitor measurement run,
// serialized as JSON to disk when the run expires from the cache.
type ArchivalData struct {
	// Version is the symbolic version (if any) of the running code.
	Version string

	// UUID is the unique identifier of this measurement run.
	UUID string

	// StartTime is the run's start time.
	StartTime time.Time
	// EndTime is the run's end time.
	EndTime time.Time

	// Outcomes contains one entry per configured target.
	Outcomes []Outcome
}

// NewArchivalData returns an ArchivalData with the version field
// populated.
func NewArchivalData(uuid string) *ArchivalData {
	return &ArchivalData{
		Version:   version.Version,
		UUID:      uuid,
		StartTime: time.Now(),
	}
}
