package diag

import (
	"fmt"

	"github.com/google/pprof/profile"
)

// Sample is one handler invocation observed by a Profiler: the vector
// it ran on and how many nanoseconds it took.
type Sample struct {
	Vector  int
	Latency int64
}

// Profiler accumulates dispatch-latency samples and renders them as a
// standard pprof profile.Profile, one location per distinct vector --
// a hosted debugging build can write the result straight out with
// profile.Write and open it with `go tool pprof` instead of decoding a
// bespoke binary ring buffer.
type Profiler struct {
	samples []Sample
}

// Record appends one dispatch-latency sample. Called by intr's
// dispatch loop when profiling is enabled; the cost when disabled is
// zero, since the hook itself is nil and never called.
func (p *Profiler) Record(vector int, latencyNanos int64) {
	p.samples = append(p.samples, Sample{Vector: vector, Latency: latencyNanos})
}

// Build renders the accumulated samples as a profile.Profile with two
// sample types: a count of invocations and total nanoseconds spent,
// both keyed by vector via a synthetic per-vector Function/Location.
func (p *Profiler) Build() *profile.Profile {
	funcs := make(map[int]*profile.Function)
	locs := make(map[int]*profile.Location)
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "count", Unit: "count"},
			{Type: "latency", Unit: "nanoseconds"},
		},
		PeriodType: &profile.ValueType{Type: "dispatch", Unit: "count"},
		Period:     1,
	}

	nextID := uint64(1)
	locFor := func(vector int) *profile.Location {
		if l, ok := locs[vector]; ok {
			return l
		}
		fn := &profile.Function{
			ID:   nextID,
			Name: fmt.Sprintf("vector-0x%02x", vector),
		}
		nextID++
		loc := &profile.Location{
			ID:   nextID,
			Line: []profile.Line{{Function: fn}},
		}
		nextID++
		funcs[vector] = fn
		locs[vector] = loc
		prof.Function = append(prof.Function, fn)
		prof.Location = append(prof.Location, loc)
		return loc
	}

	for _, s := range p.samples {
		loc := locFor(s.Vector)
		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{1, s.Latency},
		})
	}
	return prof
}

// Reset discards accumulated samples, used between test runs and
// between boot-diagnostic snapshots.
func (p *Profiler) Reset() {
	p.samples = p.samples[:0]
}
