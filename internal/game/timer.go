package game

import "time"

// countdown is a cancellable per-question timer. Remaining time is always
// re-derived from the stored deadline (or the remaining duration captured at
// pause) rather than from naive wall-clock elapsed time, so a pause/resume
// cycle neither cuts the timer short nor extends it.
type countdown struct {
	id        string
	duration  time.Duration
	deadline  time.Time
	paused    bool
	remaining time.Duration // valid only while paused
	timer     *time.Timer   // scheduled expiry callback, nil once stopped
}

func startCountdown(id string, d time.Duration, now time.Time, onExpire func()) *countdown {
	c := &countdown{
		id:       id,
		duration: d,
		deadline: now.Add(d),
	}
	if onExpire != nil {
		c.timer = time.AfterFunc(d, onExpire)
	}
	return c
}

func (c *countdown) remainingAt(now time.Time) time.Duration {
	if c.paused {
		return c.remaining
	}
	left := c.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (c *countdown) pause(now time.Time) {
	if c.paused {
		return
	}
	c.remaining = c.remainingAt(now)
	c.paused = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *countdown) resume(now time.Time, onExpire func()) {
	if !c.paused {
		return
	}
	c.deadline = now.Add(c.remaining)
	c.paused = false
	if onExpire != nil {
		c.timer = time.AfterFunc(c.remaining, onExpire)
	}
}

func (c *countdown) stop() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
