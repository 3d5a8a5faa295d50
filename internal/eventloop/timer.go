package eventloop

import (
	"container/heap"
	"time"
)

// timer is one scheduled wakeup. Entries with the same At are run in
// insertion order (the heap is not required to be stable, so seq breaks
// ties instead of relying on container/heap's internal ordering).
type timer struct {
	id       uint64
	at       time.Time
	interval time.Duration // 0 for one-shot
	fn       func(now time.Time)
	seq      uint64
	canceled bool
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// TimerID identifies a scheduled timer for cancellation (spec §3; the
// periodic pending-request sweep and the server status beacon's
// cadence both ride on this).
type TimerID uint64

type timerWheel struct {
	h      timerHeap
	byID   map[uint64]*timer
	nextID uint64
	seq    uint64
}

func newTimerWheel() *timerWheel {
	return &timerWheel{byID: make(map[uint64]*timer)}
}

// After schedules fn to run once at now+d.
func (w *timerWheel) After(now time.Time, d time.Duration, fn func(now time.Time)) TimerID {
	return w.schedule(now.Add(d), 0, fn)
}

// AtDeadline schedules fn to run at an absolute time, e.g. a pending
// request's deadline (§4.5: "deadline = now + 1000 ms").
func (w *timerWheel) AtDeadline(deadline time.Time, fn func(now time.Time)) TimerID {
	return w.schedule(deadline, 0, fn)
}

// Every schedules fn to run repeatedly every d, starting at now+d. The
// server status beacon (§4.9) reschedules itself with a new interval
// from inside fn instead of using this for its variable cadence.
func (w *timerWheel) Every(now time.Time, d time.Duration, fn func(now time.Time)) TimerID {
	return w.schedule(now.Add(d), d, fn)
}

func (w *timerWheel) schedule(at time.Time, interval time.Duration, fn func(now time.Time)) TimerID {
	w.nextID++
	w.seq++
	t := &timer{id: w.nextID, at: at, interval: interval, fn: fn, seq: w.seq}
	w.byID[t.id] = t
	heap.Push(&w.h, t)
	return TimerID(t.id)
}

// Cancel removes a scheduled timer. Canceling an already-fired one-shot
// or an unknown id is a no-op.
func (w *timerWheel) Cancel(id TimerID) {
	t, ok := w.byID[uint64(id)]
	if !ok {
		return
	}
	t.canceled = true
	delete(w.byID, uint64(id))
}

// next returns the time of the earliest pending timer, or zero time if
// none is scheduled.
func (w *timerWheel) next() (time.Time, bool) {
	for w.h.Len() > 0 && w.h[0].canceled {
		heap.Pop(&w.h)
	}
	if w.h.Len() == 0 {
		return time.Time{}, false
	}
	return w.h[0].at, true
}

// fire runs every timer whose deadline has elapsed, rescheduling
// periodic ones. Matches spec §4.3 step 2 ("sweep pending requests:
// any whose deadline <= now fires ... and is removed") generalized to
// every timer-backed concern (pending requests, beacon, eviction).
func (w *timerWheel) fire(now time.Time) {
	for {
		if w.h.Len() == 0 {
			return
		}
		t := w.h[0]
		if t.canceled {
			heap.Pop(&w.h)
			continue
		}
		if t.at.After(now) {
			return
		}
		heap.Pop(&w.h)
		delete(w.byID, t.id)
		t.fn(now)
		if t.interval > 0 && !t.canceled {
			t.at = t.at.Add(t.interval)
			t.seq = w.nextSeq()
			w.byID[t.id] = t
			heap.Push(&w.h, t)
		}
	}
}

func (w *timerWheel) nextSeq() uint64 {
	w.seq++
	return w.seq
}
