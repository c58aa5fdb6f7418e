package miditoolkit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChannelStatistics holds per-channel aggregate counters (spec.md section
// 3.6), grounded on the original Rust crate's ChannelStatistics
// (sequence/event/stats.rs).
type ChannelStatistics[D Numeric] struct {
	NoteOnCount      uint64
	NoteOffCount     uint64
	TotalEventCount  uint64
	TotalLengthTicks D
	// TempoEvents records each Tempo event seen, with its delta rewritten
	// to ticks since the previous tempo event within this channel (spec.md
	// section 4.J).
	TempoEvents []Delta[D, Tempo]
}

// OtherEventCount is every event that isn't a NoteOn or NoteOff.
func (s ChannelStatistics[D]) OtherEventCount() uint64 {
	return s.TotalEventCount - s.NoteOnCount - s.NoteOffCount
}

// CalculateTotalDuration walks the tempo sequence converting ticks to
// seconds, per spec.md section 4.J: "seconds += (current_tempo_us_per_qn /
// ppq) * delta_ticks / 1000000", with the running tempo starting at
// 500000 µs/qn.
func (s ChannelStatistics[D]) CalculateTotalDuration(ppq uint16) time.Duration {
	return tempoSequenceDuration(s.TempoEvents, ppq, s.TotalLengthTicks)
}

func tempoSequenceDuration[D Numeric](tempos []Delta[D, Tempo], ppq uint16, ticks D) time.Duration {
	remaining := ticks
	seconds := 0.0
	multiplier := (500000.0 / float64(ppq)) / 1000000.0
	for _, t := range tempos {
		offset := t.DeltaTicks
		if offset > remaining {
			break
		}
		remaining = remaining - offset
		seconds += multiplier * ToF64(offset)
		multiplier = (float64(t.Event.MicrosecondsPerQuarterNote) / float64(ppq)) / 1000000.0
	}
	seconds += multiplier * ToF64(remaining)
	return time.Duration(seconds * float64(time.Second))
}

// GetChannelStatistics scans a single channel's event stream, accumulating
// counts, total tick length, and the per-channel tempo sequence (spec.md
// section 4.J). The caller is responsible for routing only one channel's
// events into in; statistics for a full file are produced by
// GetChannelsArrayStatistics.
func GetChannelStatistics[D Numeric](in Stream[Delta[D, Event]]) (ChannelStatistics[D], error) {
	var stats ChannelStatistics[D]
	ticksSinceLastTempo := Zero[D]()

	for {
		item, ok, err := in.Next()
		if err != nil {
			return stats, err
		}
		if !ok {
			return stats, nil
		}
		stats.TotalEventCount++
		stats.TotalLengthTicks = stats.TotalLengthTicks + item.DeltaTicks
		ticksSinceLastTempo = ticksSinceLastTempo + item.DeltaTicks

		switch e := item.Event.(type) {
		case NoteOn:
			stats.NoteOnCount++
		case NoteOff:
			stats.NoteOffCount++
		case Tempo:
			stats.TempoEvents = append(stats.TempoEvents, Delta[D, Tempo]{DeltaTicks: ticksSinceLastTempo, Event: e})
			ticksSinceLastTempo = Zero[D]()
		}
	}
}

// ChannelGroupStatistics aggregates ChannelStatistics across every channel
// of a file (spec.md section 3.6): total_length_ticks is the max across
// channels, everything else sums.
type ChannelGroupStatistics[D Numeric] struct {
	Group    ChannelStatistics[D]
	Channels []ChannelStatistics[D]
}

// GetChannelsArrayStatistics scans each of the given per-channel streams
// concurrently on the worker pool, then merges their tempo sequences
// (§4.G) so every channel's TempoEvents reflects every tempo change in the
// file, not just the ones on its own channel (spec.md section 4.J,
// "Group"). Grounded on the original crate's get_channels_array_statistics,
// generalized from rayon's data-parallel iterator to this library's own
// WorkerPool + MergeStreams.
func GetChannelsArrayStatistics[D Numeric](ctx context.Context, pool *WorkerPool, channels []Stream[Delta[D, Event]]) (ChannelGroupStatistics[D], error) {
	perChannel, err := RunIndexed(ctx, pool, channels, func(_ context.Context, s Stream[Delta[D, Event]]) (ChannelStatistics[D], error) {
		return GetChannelStatistics(s)
	})
	if err != nil {
		return ChannelGroupStatistics[D]{}, err
	}

	tempoStreams := make([]Stream[Delta[D, Tempo]], len(perChannel))
	for i, c := range perChannel {
		tempoStreams[i] = NewSliceStream(c.TempoEvents)
	}
	merged, err := ToSliceResult[Delta[D, Tempo]](MergeStreams(tempoStreams))
	if err != nil {
		return ChannelGroupStatistics[D]{}, err
	}

	for i := range perChannel {
		perChannel[i].TempoEvents = merged
	}

	group := ChannelStatistics[D]{TempoEvents: merged}
	maxTicks := Zero[D]()
	for _, c := range perChannel {
		group.NoteOnCount += c.NoteOnCount
		group.NoteOffCount += c.NoteOffCount
		group.TotalEventCount += c.TotalEventCount
		if c.TotalLengthTicks > maxTicks {
			maxTicks = c.TotalLengthTicks
		}
	}
	group.TotalLengthTicks = maxTicks

	return ChannelGroupStatistics[D]{Group: group, Channels: perChannel}, nil
}

// StatsCollector exposes a ChannelGroupStatistics snapshot as Prometheus
// metrics, so a host process can scrape parse-time statistics for a
// black-MIDI file the way zfogg-sidechain's backend scrapes its own
// business metrics (SPEC_FULL.md section 11). This is additive
// instrumentation over the counters GetChannelsArrayStatistics already
// computes, not a behavioural change to the statistics engine itself.
type StatsCollector struct {
	noteOnTotal      *prometheus.Desc
	noteOffTotal     *prometheus.Desc
	eventTotal       *prometheus.Desc
	durationSeconds  *prometheus.Desc
	noteOn           float64
	noteOff          float64
	event            float64
	durationSec      float64
}

// NewStatsCollector builds a StatsCollector from a ChannelGroupStatistics
// snapshot at a given PPQ.
func NewStatsCollector[D Numeric](stats ChannelGroupStatistics[D], ppq uint16) *StatsCollector {
	return &StatsCollector{
		noteOnTotal:     prometheus.NewDesc("miditoolkit_note_on_total", "Total NoteOn events parsed.", nil, nil),
		noteOffTotal:    prometheus.NewDesc("miditoolkit_note_off_total", "Total NoteOff events parsed.", nil, nil),
		eventTotal:      prometheus.NewDesc("miditoolkit_event_total", "Total events parsed.", nil, nil),
		durationSeconds: prometheus.NewDesc("miditoolkit_duration_seconds", "Computed playback duration in seconds.", nil, nil),
		noteOn:          float64(stats.Group.NoteOnCount),
		noteOff:         float64(stats.Group.NoteOffCount),
		event:           float64(stats.Group.TotalEventCount),
		durationSec:     stats.Group.CalculateTotalDuration(ppq).Seconds(),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.noteOnTotal
	ch <- c.noteOffTotal
	ch <- c.eventTotal
	ch <- c.durationSeconds
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.noteOnTotal, prometheus.CounterValue, c.noteOn)
	ch <- prometheus.MustNewConstMetric(c.noteOffTotal, prometheus.CounterValue, c.noteOff)
	ch <- prometheus.MustNewConstMetric(c.eventTotal, prometheus.CounterValue, c.event)
	ch <- prometheus.MustNewConstMetric(c.durationSeconds, prometheus.GaugeValue, c.durationSec)
}
