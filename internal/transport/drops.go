package transport

import (
	"sync"
	"time"
)

// DefaultReportInterval is the minimum time between two drop reports.
const DefaultReportInterval = 10 * time.Second

// DropReport summarises the packets dropped since the previous report.
type DropReport struct {
	Count    uint64
	Interval time.Duration
}

// DropReporter counts dropped packets and reports them at most once per interval, however
// fast packets are being dropped.
type DropReporter struct {
	interval time.Duration
	now      func() time.Time
	report   func(DropReport)

	mutex      sync.Mutex
	count      uint64
	lastReport time.Time
}

// NewDropReporter creates a reporter that logs reports at info level. The first interval starts
// now.
func NewDropReporter(logger Logger) *DropReporter {
	d := &DropReporter{
		interval: DefaultReportInterval,
		now:      time.Now,
	}

	d.report = func(report DropReport) {
		logger.Infof("Dropped %d packets in the last %s", report.Count, report.Interval.Round(time.Millisecond))
	}

	d.lastReport = d.now()

	return d
}

// OnReport replaces the function that receives drop reports.
func (d *DropReporter) OnReport(fn func(DropReport)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.report = fn
}

// Drop records a dropped packet. If the interval has elapsed since the last report, a report
// including this drop is emitted and the count starts again from zero.
func (d *DropReporter) Drop() {
	d.mutex.Lock()

	d.count++

	now := d.now()
	elapsed := now.Sub(d.lastReport)

	if elapsed < d.interval {
		d.mutex.Unlock()
		return
	}

	report := DropReport{Count: d.count, Interval: elapsed}
	fn := d.report

	d.count = 0
	d.lastReport = now

	d.mutex.Unlock()

	if fn != nil {
		fn(report)
	}
}

// Pending returns the number of drops not yet reported.
func (d *DropReporter) Pending() uint64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.count
}
