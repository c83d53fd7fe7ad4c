package orchestrator

import "sync/atomic"

// Stats counts the work of a decode pass.
type Stats struct {
	UnitsParsed   int64
	Groups        int64
	VideoStreams  int64
	FramesBuilt   int64
	FramesEmitted int64
	FramesSkipped int64
}

type counters struct {
	units   atomic.Int64
	groups  atomic.Int64
	video   atomic.Int64
	built   atomic.Int64
	emitted atomic.Int64
	skipped atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		UnitsParsed:   c.units.Load(),
		Groups:        c.groups.Load(),
		VideoStreams:  c.video.Load(),
		FramesBuilt:   c.built.Load(),
		FramesEmitted: c.emitted.Load(),
		FramesSkipped: c.skipped.Load(),
	}
}
