package ofi

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ofi-go/ofi/internal/interfaces"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for a fabric
// endpoint's submitted operations. The counters are atomic for the hot
// completion-dispatch path; Collect projects them as a prometheus.Collector
// for scraping, grounded on the same Desc/MustNewConstMetric pattern an RDMA
// port-counter exporter uses for sysfs counters, applied here to in-process
// operation counters instead of device counters.
type Metrics struct {
	// Operation counters
	SendOps      atomic.Uint64
	RecvOps      atomic.Uint64
	RMAReadOps   atomic.Uint64
	RMAWriteOps  atomic.Uint64
	AtomicOps    atomic.Uint64

	// Byte counters
	SendBytes     atomic.Uint64
	RecvBytes     atomic.Uint64
	RMAReadBytes  atomic.Uint64
	RMAWriteBytes atomic.Uint64

	// Error counters
	SendErrors     atomic.Uint64
	RecvErrors     atomic.Uint64
	RMAReadErrors  atomic.Uint64
	RMAWriteErrors atomic.Uint64
	AtomicErrors   atomic.Uint64

	// Completion queue depth statistics
	CQDepthTotal atomic.Uint64
	CQDepthCount atomic.Uint64
	MaxCQDepth   atomic.Uint32

	// Performance tracking
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative counts); bucket[i] holds the
	// count of operations with latency <= LatencyBuckets[i].
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64

	descs metricDescs
}

type metricDescs struct {
	sendOps, recvOps, rmaReadOps, rmaWriteOps, atomicOps       *prometheus.Desc
	sendBytes, recvBytes, rmaReadBytes, rmaWriteBytes          *prometheus.Desc
	sendErrors, recvErrors, rmaReadErrors, rmaWriteErrors       *prometheus.Desc
	atomicErrors                                                *prometheus.Desc
	cqDepth                                                     *prometheus.Desc
	latency                                                     *prometheus.Desc
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	m.descs = metricDescs{
		sendOps:        prometheus.NewDesc("ofi_send_ops_total", "Total send operations submitted.", nil, nil),
		recvOps:        prometheus.NewDesc("ofi_recv_ops_total", "Total receive operations submitted.", nil, nil),
		rmaReadOps:     prometheus.NewDesc("ofi_rma_read_ops_total", "Total RMA read operations submitted.", nil, nil),
		rmaWriteOps:    prometheus.NewDesc("ofi_rma_write_ops_total", "Total RMA write operations submitted.", nil, nil),
		atomicOps:      prometheus.NewDesc("ofi_atomic_ops_total", "Total atomic operations submitted.", nil, nil),
		sendBytes:      prometheus.NewDesc("ofi_send_bytes_total", "Total bytes sent.", nil, nil),
		recvBytes:      prometheus.NewDesc("ofi_recv_bytes_total", "Total bytes received.", nil, nil),
		rmaReadBytes:   prometheus.NewDesc("ofi_rma_read_bytes_total", "Total bytes read via RMA.", nil, nil),
		rmaWriteBytes:  prometheus.NewDesc("ofi_rma_write_bytes_total", "Total bytes written via RMA.", nil, nil),
		sendErrors:     prometheus.NewDesc("ofi_send_errors_total", "Total failed send operations.", nil, nil),
		recvErrors:     prometheus.NewDesc("ofi_recv_errors_total", "Total failed receive operations.", nil, nil),
		rmaReadErrors:  prometheus.NewDesc("ofi_rma_read_errors_total", "Total failed RMA read operations.", nil, nil),
		rmaWriteErrors: prometheus.NewDesc("ofi_rma_write_errors_total", "Total failed RMA write operations.", nil, nil),
		atomicErrors:   prometheus.NewDesc("ofi_atomic_errors_total", "Total failed atomic operations.", nil, nil),
		cqDepth:        prometheus.NewDesc("ofi_completion_queue_depth", "Maximum observed completion queue depth.", nil, nil),
		latency:        prometheus.NewDesc("ofi_op_latency_seconds", "Operation completion latency.", nil, nil),
	}
	return m
}

// ObserveSend implements interfaces.MetricsObserver.
func (m *Metrics) ObserveSend(bytes uint64, latencyNs uint64, success bool) {
	m.SendOps.Add(1)
	if success {
		m.SendBytes.Add(bytes)
	} else {
		m.SendErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveRecv implements interfaces.MetricsObserver.
func (m *Metrics) ObserveRecv(bytes uint64, latencyNs uint64, success bool) {
	m.RecvOps.Add(1)
	if success {
		m.RecvBytes.Add(bytes)
	} else {
		m.RecvErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveRMARead implements interfaces.MetricsObserver.
func (m *Metrics) ObserveRMARead(bytes uint64, latencyNs uint64, success bool) {
	m.RMAReadOps.Add(1)
	if success {
		m.RMAReadBytes.Add(bytes)
	} else {
		m.RMAReadErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveRMAWrite implements interfaces.MetricsObserver.
func (m *Metrics) ObserveRMAWrite(bytes uint64, latencyNs uint64, success bool) {
	m.RMAWriteOps.Add(1)
	if success {
		m.RMAWriteBytes.Add(bytes)
	} else {
		m.RMAWriteErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveAtomic implements interfaces.MetricsObserver.
func (m *Metrics) ObserveAtomic(latencyNs uint64, success bool) {
	m.AtomicOps.Add(1)
	if !success {
		m.AtomicErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// ObserveCompletionQueueDepth implements interfaces.MetricsObserver.
func (m *Metrics) ObserveCompletionQueueDepth(depth uint32) {
	m.CQDepthTotal.Add(uint64(depth))
	m.CQDepthCount.Add(1)

	for {
		current := m.MaxCQDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxCQDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the metrics instance as stopped, freezing uptime calculations.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	SendOps     uint64
	RecvOps     uint64
	RMAReadOps  uint64
	RMAWriteOps uint64
	AtomicOps   uint64

	SendBytes     uint64
	RecvBytes     uint64
	RMAReadBytes  uint64
	RMAWriteBytes uint64

	SendErrors     uint64
	RecvErrors     uint64
	RMAReadErrors  uint64
	RMAWriteErrors uint64
	AtomicErrors   uint64

	AvgCQDepth float64
	MaxCQDepth uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	TotalOps   uint64
	TotalBytes uint64
	ErrorRate  float64

	SendIOPS      float64
	RecvIOPS      float64
	SendBandwidth float64
	RecvBandwidth float64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		SendOps:        m.SendOps.Load(),
		RecvOps:        m.RecvOps.Load(),
		RMAReadOps:     m.RMAReadOps.Load(),
		RMAWriteOps:    m.RMAWriteOps.Load(),
		AtomicOps:      m.AtomicOps.Load(),
		SendBytes:      m.SendBytes.Load(),
		RecvBytes:      m.RecvBytes.Load(),
		RMAReadBytes:   m.RMAReadBytes.Load(),
		RMAWriteBytes:  m.RMAWriteBytes.Load(),
		SendErrors:     m.SendErrors.Load(),
		RecvErrors:     m.RecvErrors.Load(),
		RMAReadErrors:  m.RMAReadErrors.Load(),
		RMAWriteErrors: m.RMAWriteErrors.Load(),
		AtomicErrors:   m.AtomicErrors.Load(),
		MaxCQDepth:     m.MaxCQDepth.Load(),
	}

	snap.TotalOps = snap.SendOps + snap.RecvOps + snap.RMAReadOps + snap.RMAWriteOps + snap.AtomicOps
	snap.TotalBytes = snap.SendBytes + snap.RecvBytes + snap.RMAReadBytes + snap.RMAWriteBytes

	cqDepthTotal := m.CQDepthTotal.Load()
	cqDepthCount := m.CQDepthCount.Load()
	if cqDepthCount > 0 {
		snap.AvgCQDepth = float64(cqDepthTotal) / float64(cqDepthCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	totalErrors := snap.SendErrors + snap.RecvErrors + snap.RMAReadErrors + snap.RMAWriteErrors + snap.AtomicErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.SendIOPS = float64(snap.SendOps) / uptimeSeconds
		snap.RecvIOPS = float64(snap.RecvOps) / uptimeSeconds
		snap.SendBandwidth = float64(snap.SendBytes) / uptimeSeconds
		snap.RecvBandwidth = float64(snap.RecvBytes) / uptimeSeconds
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters. Useful for testing.
func (m *Metrics) Reset() {
	m.SendOps.Store(0)
	m.RecvOps.Store(0)
	m.RMAReadOps.Store(0)
	m.RMAWriteOps.Store(0)
	m.AtomicOps.Store(0)
	m.SendBytes.Store(0)
	m.RecvBytes.Store(0)
	m.RMAReadBytes.Store(0)
	m.RMAWriteBytes.Store(0)
	m.SendErrors.Store(0)
	m.RecvErrors.Store(0)
	m.RMAReadErrors.Store(0)
	m.RMAWriteErrors.Store(0)
	m.AtomicErrors.Store(0)
	m.CQDepthTotal.Store(0)
	m.CQDepthCount.Store(0)
	m.MaxCQDepth.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	d := m.descs
	for _, desc := range []*prometheus.Desc{
		d.sendOps, d.recvOps, d.rmaReadOps, d.rmaWriteOps, d.atomicOps,
		d.sendBytes, d.recvBytes, d.rmaReadBytes, d.rmaWriteBytes,
		d.sendErrors, d.recvErrors, d.rmaReadErrors, d.rmaWriteErrors, d.atomicErrors,
		d.cqDepth, d.latency,
	} {
		ch <- desc
	}
}

// Collect implements prometheus.Collector, projecting the atomic counters
// into const metrics at scrape time.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	snap := m.Snapshot()
	d := m.descs

	ch <- prometheus.MustNewConstMetric(d.sendOps, prometheus.CounterValue, float64(snap.SendOps))
	ch <- prometheus.MustNewConstMetric(d.recvOps, prometheus.CounterValue, float64(snap.RecvOps))
	ch <- prometheus.MustNewConstMetric(d.rmaReadOps, prometheus.CounterValue, float64(snap.RMAReadOps))
	ch <- prometheus.MustNewConstMetric(d.rmaWriteOps, prometheus.CounterValue, float64(snap.RMAWriteOps))
	ch <- prometheus.MustNewConstMetric(d.atomicOps, prometheus.CounterValue, float64(snap.AtomicOps))

	ch <- prometheus.MustNewConstMetric(d.sendBytes, prometheus.CounterValue, float64(snap.SendBytes))
	ch <- prometheus.MustNewConstMetric(d.recvBytes, prometheus.CounterValue, float64(snap.RecvBytes))
	ch <- prometheus.MustNewConstMetric(d.rmaReadBytes, prometheus.CounterValue, float64(snap.RMAReadBytes))
	ch <- prometheus.MustNewConstMetric(d.rmaWriteBytes, prometheus.CounterValue, float64(snap.RMAWriteBytes))

	ch <- prometheus.MustNewConstMetric(d.sendErrors, prometheus.CounterValue, float64(snap.SendErrors))
	ch <- prometheus.MustNewConstMetric(d.recvErrors, prometheus.CounterValue, float64(snap.RecvErrors))
	ch <- prometheus.MustNewConstMetric(d.rmaReadErrors, prometheus.CounterValue, float64(snap.RMAReadErrors))
	ch <- prometheus.MustNewConstMetric(d.rmaWriteErrors, prometheus.CounterValue, float64(snap.RMAWriteErrors))
	ch <- prometheus.MustNewConstMetric(d.atomicErrors, prometheus.CounterValue, float64(snap.AtomicErrors))

	ch <- prometheus.MustNewConstMetric(d.cqDepth, prometheus.GaugeValue, float64(snap.MaxCQDepth))

	buckets := make(map[float64]uint64, numLatencyBuckets)
	for i, b := range LatencyBuckets {
		buckets[float64(b)/1e9] = snap.LatencyHistogram[i]
	}
	opCount := m.OpCount.Load()
	totalLatencySeconds := float64(m.TotalLatencyNs.Load()) / 1e9
	ch <- prometheus.MustNewConstHistogram(d.latency, opCount, totalLatencySeconds, buckets)
}

// NoOpObserver is a no-op implementation of interfaces.MetricsObserver.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSend(uint64, uint64, bool)              {}
func (NoOpObserver) ObserveRecv(uint64, uint64, bool)              {}
func (NoOpObserver) ObserveRMARead(uint64, uint64, bool)           {}
func (NoOpObserver) ObserveRMAWrite(uint64, uint64, bool)          {}
func (NoOpObserver) ObserveAtomic(uint64, bool)                    {}
func (NoOpObserver) ObserveCompletionQueueDepth(uint32)            {}

// Compile-time interface checks.
var _ interfaces.MetricsObserver = (*Metrics)(nil)
var _ interfaces.MetricsObserver = NoOpObserver{}
var _ prometheus.Collector = (*Metrics)(nil)
