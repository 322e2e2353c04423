package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/rauko1753/filch/internal/utils"
)

// steal makes one work-steal attempt on behalf of an idle worker. A victim
// qualifies when it has been downloading longer than the age floor, runs
// below the configured fraction of the average speed of live chunks, and
// still has more than the remainder floor left to fetch. The slowest
// qualifying chunk is cancelled, its received prefix is preserved as an
// immediately-completed salvaged chunk, and the unfetched remainder is
// re-split into pending sub-chunks.
func (d *download) steal() bool {
	cfg := &d.e.cfg
	now := d.e.now()
	t := d.table
	t.mu.Lock()
	defer t.mu.Unlock()

	var active []*chunk
	var views []chunkView
	var sum float64
	for _, c := range t.chunks {
		v := c.view(now, cfg.SampleInterval)
		if v.status != chunkDownloading {
			continue
		}
		active = append(active, c)
		views = append(views, v)
		sum += v.speed
	}
	if len(active) == 0 {
		return false
	}
	avg := sum / float64(len(active))

	var victim *chunk
	var victimSpeed float64
	for i, c := range active {
		v := views[i]
		if v.age <= cfg.StealMinAge {
			continue
		}
		if v.speed >= cfg.StealSpeedRatio*avg {
			continue
		}
		if v.remaining <= cfg.StealMinRemainder {
			continue
		}
		if victim == nil || v.speed < victimSpeed {
			victim = c
			victimSpeed = v.speed
		}
	}
	if victim == nil {
		return false
	}

	salvaged, ok := victim.cancelForSteal()
	if !ok {
		return false
	}

	if salvaged > 0 {
		sc := &chunk{
			index:      t.next,
			start:      victim.start,
			end:        victim.start + salvaged - 1,
			salvaged:   true,
			status:     chunkCompleted,
			downloaded: salvaged,
			buf:        victim.buf[:salvaged:salvaged],
		}
		t.next++
		t.chunks = append(t.chunks, sc)
	}

	remStart := victim.start + salvaged
	if remStart > victim.end {
		log.Debug().Str("op", "engine/steal").Msgf("chunk %d cancelled with nothing left to re-plan", victim.index)
		return true
	}
	remLen := victim.end - remStart + 1
	parts := splitRange(remStart, victim.end, splitFanoutFor(remLen, cfg.SplitBands))
	for _, p := range parts {
		sub := &chunk{index: t.next, start: p[0], end: p[1]}
		t.next++
		t.chunks = append(t.chunks, sub)
		t.queue = append(t.queue, sub)
	}
	log.Debug().Str("op", "engine/steal").Msgf("cancelled chunk %d at %s of %s (%.0f B/s vs avg %.0f B/s), re-planned %s as %d sub-chunks",
		victim.index, utils.FormatBytes(uint64(salvaged)), utils.FormatBytes(uint64(victim.size())), victimSpeed, avg,
		utils.FormatBytes(uint64(remLen)), len(parts))
	return true
}
