/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package engine

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dantesync/dantesync/clock"
	"github.com/dantesync/dantesync/ptpv1"
	"github.com/dantesync/dantesync/servo"
)

type pendingEntry struct {
	rxTime     time.Time
	sourceUUID ptpv1.UUID
}

// Controller is the Sync-Pair Matcher, Phase Filter, and Decision Engine
// described together: it owns the pending-syncs table, the current
// grandmaster, the delta-gating history, the sample window, and drives the
// servo and clock actuator. It is not safe for concurrent use; the
// supervisor loop is its sole caller, by construction (see the
// concurrency model).
type Controller struct {
	clock  clock.Actuator
	servo  *servo.Servo
	source PacketSource
	cfg    FilterConfig

	onStatus         func(Status)
	onGMChange       func(old, new *ptpv1.UUID)
	requestRTCUpdate func()

	pending   map[uint16]pendingEntry
	currentGM *ptpv1.UUID

	prevT1, prevT2 int64
	validCount     uint64
	clockSettled   bool

	sampleWindow  []int64
	filteredCount uint64

	lastAdjPPM float64
}

// New constructs a Controller. source may be nil if the caller has no
// notion of resettable packet-source state.
func New(c clock.Actuator, s *servo.Servo, source PacketSource, cfg FilterConfig, onStatus func(Status), onGMChange func(old, new *ptpv1.UUID), requestRTCUpdate func()) *Controller {
	return &Controller{
		clock:            c,
		servo:            s,
		source:           source,
		cfg:              cfg,
		onStatus:         onStatus,
		onGMChange:       onGMChange,
		requestRTCUpdate: requestRTCUpdate,
		pending:          make(map[uint16]pendingEntry),
	}
}

// ProcessPacket runs one packet through the matcher. Malformed packets are
// discarded silently, per the error taxonomy.
func (c *Controller) ProcessPacket(payload []byte, arrival time.Time) {
	h, err := ptpv1.ParseHeader(payload)
	if err != nil {
		log.Debugf("engine: %v", err)
		return
	}

	switch h.Type {
	case ptpv1.Sync:
		c.pending[h.SequenceID] = pendingEntry{rxTime: arrival, sourceUUID: h.SourceUUID}
		c.evictPending()

		gm, err := ptpv1.ParseSyncBody(payload)
		if err != nil {
			log.Debugf("engine: %v", err)
			return
		}
		c.observeGM(gm)

	case ptpv1.FollowUp:
		fu, err := ptpv1.ParseFollowUpBody(payload)
		if err != nil {
			log.Debugf("engine: %v", err)
			return
		}
		entry, ok := c.pending[fu.AssociatedSequenceID]
		if !ok {
			return
		}
		delete(c.pending, fu.AssociatedSequenceID)
		if entry.sourceUUID != h.SourceUUID {
			log.Debugf("engine: follow-up source uuid mismatch, discarding")
			return
		}
		c.handleSyncPair(fu.OriginNS, entry.rxTime)
	}
}

// evictPending drops every entry older than pendingSyncMaxAge once the
// pending table holds more than pendingSyncCap entries. Younger entries
// are kept, so the table can stay above pendingSyncCap until they age out.
func (c *Controller) evictPending() {
	if len(c.pending) <= pendingSyncCap {
		return
	}
	now := time.Now()
	for seq, entry := range c.pending {
		if now.Sub(entry.rxTime) > pendingSyncMaxAge {
			delete(c.pending, seq)
		}
	}
}

// observeGM tracks the current grandmaster: the first observation is
// adopted and logged without any reset; a change triggers a full filter
// and servo reset.
func (c *Controller) observeGM(gm ptpv1.UUID) {
	if c.currentGM == nil {
		u := gm
		c.currentGM = &u
		log.Infof("engine: adopted grandmaster %x", gm)
		return
	}
	if *c.currentGM == gm {
		return
	}
	old := *c.currentGM
	newGM := gm
	log.Warnf("engine: grandmaster changed %x -> %x, resetting", old, newGM)
	c.currentGM = &newGM
	c.resetFilter()
	c.servo.Reset()
	if c.onGMChange != nil {
		c.onGMChange(&old, &newGM)
	}
	c.publishStatus(0, 0)
}

// resetFilter clears matching and settling state but deliberately leaves
// the servo untouched: the caller decides whether a servo reset also
// applies (grandmaster change does; an initial phase step does not).
func (c *Controller) resetFilter() {
	c.validCount = 0
	c.clockSettled = false
	c.prevT1 = 0
	c.prevT2 = 0
	c.sampleWindow = c.sampleWindow[:0]
	c.filteredCount = 0
	c.pending = make(map[uint16]pendingEntry)
	if c.source != nil {
		if err := c.source.Reset(); err != nil {
			log.Warnf("engine: packet source reset failed: %v", err)
		}
	}
}

func computePhase(t1NS, t2NS int64) int64 {
	const ns = 1_000_000_000
	t1mod := ((t1NS % ns) + ns) % ns
	t2mod := ((t2NS % ns) + ns) % ns
	phase := t2mod - t1mod
	if phase > ns/2 {
		phase -= ns
	} else if phase < -ns/2 {
		phase += ns
	}
	return phase
}

func outOfDeltaRange(delta, minDelta int64) bool {
	return delta < minDelta || delta > MaxDeltaNS
}

func minSample(xs []int64) int64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// handleSyncPair is the phase filter and decision engine: it computes the
// phase offset for a matched (t1, t2) pair, applies delta gating, tracks
// settling, handles the initial-step and massive-drift-recovery paths, and
// batches accepted samples into the servo.
func (c *Controller) handleSyncPair(t1NS int64, t2 time.Time) {
	t2NS := t2.UnixNano()
	phase := computePhase(t1NS, t2NS)

	if c.prevT1 != 0 || c.prevT2 != 0 {
		deltaMaster := t1NS - c.prevT1
		deltaSlave := t2NS - c.prevT2
		if outOfDeltaRange(deltaMaster, c.cfg.MinDeltaNS) || outOfDeltaRange(deltaSlave, c.cfg.MinDeltaNS) {
			log.Debugf("engine: rejecting pair, delta out of range (master=%d slave=%d)", deltaMaster, deltaSlave)
			c.prevT1, c.prevT2 = t1NS, t2NS
			return
		}
	}

	c.validCount++

	if !c.clockSettled {
		if c.validCount < c.cfg.SettlingThreshold {
			c.publishStatus(phase, 0)
			c.prevT1, c.prevT2 = t1NS, t2NS
			return
		}

		c.clockSettled = true
		log.Infof("engine: settled after %d valid pairs", c.validCount)

		if abs64(phase) > MaxPhaseOffsetForStepNS {
			c.stepAndResetFilter(phase)
			c.prevT1, c.prevT2 = t1NS, t2NS
			return
		}
		if c.requestRTCUpdate != nil {
			c.requestRTCUpdate()
		}
	} else if abs64(phase) > c.cfg.MassiveDriftThresholdNS {
		c.stepAndResetFilter(phase)
		c.prevT1, c.prevT2 = t1NS, t2NS
		return
	}

	c.sampleWindow = append(c.sampleWindow, phase)
	c.filteredCount++
	if len(c.sampleWindow) >= c.cfg.SampleWindowSize {
		lucky := minSample(c.sampleWindow)
		adjPPM := c.servo.Sample(float64(lucky))
		if err := c.clock.AdjFreqPPB(adjPPM * 1000); err != nil {
			log.Warnf("engine: frequency adjustment failed: %v", err)
		} else {
			c.lastAdjPPM = adjPPM
		}
		c.sampleWindow = c.sampleWindow[:0]
		c.publishStatus(phase, c.lastAdjPPM)
	} else {
		c.publishStatus(phase, c.lastAdjPPM)
	}

	c.prevT1, c.prevT2 = t1NS, t2NS
}

// stepAndResetFilter issues a step of magnitude |phase| with the sign that
// brings the local clock toward the grandmaster, then resets the filter.
// It never resets the servo integral: physical frequency drift survives a
// discontinuous phase correction.
func (c *Controller) stepAndResetFilter(phase int64) {
	step := time.Duration(-phase)
	if err := c.clock.Step(step); err != nil {
		log.Warnf("engine: step failed: %v", err)
	}
	c.resetFilter()
	c.publishStatus(phase, c.lastAdjPPM)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (c *Controller) publishStatus(phase int64, adjPPM float64) {
	if c.onStatus == nil {
		return
	}
	mode := "ACQ"
	if c.clockSettled {
		mode = "LOCKED"
	}
	var gm *ptpv1.UUID
	if c.currentGM != nil {
		u := *c.currentGM
		gm = &u
	}
	c.onStatus(Status{
		OffsetNS:        phase,
		DriftPPM:        adjPPM,
		GMUUID:          gm,
		Settled:         c.clockSettled,
		UpdatedUnixSecs: time.Now().Unix(),
		IsLocked:        c.clockSettled,
		SmoothedRatePPM: c.servo.Integral(),
		Mode:            mode,
		FilteredCount:   c.filteredCount,
	})
}

// Settled reports whether the engine has observed enough valid pairs to
// actuate the clock.
func (c *Controller) Settled() bool { return c.clockSettled }

// ValidCount reports how many valid (post-gating) pairs have been seen
// since the last reset.
func (c *Controller) ValidCount() uint64 { return c.validCount }

// PendingCount reports the current size of the PendingSync table.
func (c *Controller) PendingCount() int { return len(c.pending) }

// CurrentGM returns the currently tracked grandmaster UUID, or nil if none
// has been observed yet.
func (c *Controller) CurrentGM() *ptpv1.UUID { return c.currentGM }
