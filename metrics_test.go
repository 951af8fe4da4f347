package ofi

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 initial ops, got %d", snap.TotalOps)
	}

	m.ObserveSend(1024, 1_000_000, true)
	m.ObserveRMAWrite(2048, 2_000_000, true)
	m.ObserveSend(512, 500_000, false)

	snap = m.Snapshot()

	if snap.SendOps != 2 {
		t.Errorf("Expected 2 send ops, got %d", snap.SendOps)
	}
	if snap.RMAWriteOps != 1 {
		t.Errorf("Expected 1 rma write op, got %d", snap.RMAWriteOps)
	}

	if snap.SendBytes != 1024 {
		t.Errorf("Expected 1024 send bytes, got %d", snap.SendBytes)
	}
	if snap.RMAWriteBytes != 2048 {
		t.Errorf("Expected 2048 rma write bytes, got %d", snap.RMAWriteBytes)
	}

	if snap.SendErrors != 1 {
		t.Errorf("Expected 1 send error, got %d", snap.SendErrors)
	}
	if snap.RMAWriteErrors != 0 {
		t.Errorf("Expected 0 rma write errors, got %d", snap.RMAWriteErrors)
	}

	expectedErrorRate := float64(1) / float64(3) * 100.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("Expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsCompletionQueueDepth(t *testing.T) {
	m := NewMetrics()

	m.ObserveCompletionQueueDepth(10)
	m.ObserveCompletionQueueDepth(20)
	m.ObserveCompletionQueueDepth(15)

	snap := m.Snapshot()

	if snap.MaxCQDepth != 20 {
		t.Errorf("Expected max CQ depth 20, got %d", snap.MaxCQDepth)
	}

	expectedAvg := float64(10+20+15) / 3.0
	if snap.AvgCQDepth < expectedAvg-0.1 || snap.AvgCQDepth > expectedAvg+0.1 {
		t.Errorf("Expected avg CQ depth %.1f, got %.1f", expectedAvg, snap.AvgCQDepth)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.ObserveSend(1024, 1_000_000, true)
	m.ObserveRMAWrite(1024, 2_000_000, true)

	snap := m.Snapshot()

	expectedAvgNs := uint64(1_500_000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.ObserveSend(1024, 1_000_000, true)
	m.ObserveRMAWrite(2048, 2_000_000, true)
	m.ObserveCompletionQueueDepth(10)

	snap := m.Snapshot()
	if snap.TotalOps == 0 {
		t.Error("Expected some operations before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 ops after reset, got %d", snap.TotalOps)
	}
	if snap.TotalBytes != 0 {
		t.Errorf("Expected 0 bytes after reset, got %d", snap.TotalBytes)
	}
	if snap.MaxCQDepth != 0 {
		t.Errorf("Expected 0 max CQ depth after reset, got %d", snap.MaxCQDepth)
	}
}

func TestNoOpObserver(t *testing.T) {
	observer := NoOpObserver{}
	observer.ObserveSend(1024, 1_000_000, true)
	observer.ObserveRecv(1024, 1_000_000, true)
	observer.ObserveRMARead(1024, 1_000_000, true)
	observer.ObserveRMAWrite(1024, 1_000_000, true)
	observer.ObserveAtomic(1_000_000, true)
	observer.ObserveCompletionQueueDepth(10)
}

func TestMetricsRates(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.ObserveSend(1024, 1_000_000, true)
	m.ObserveRMAWrite(2048, 2_000_000, true)

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()

	if snap.SendIOPS < 0.9 || snap.SendIOPS > 1.1 {
		t.Errorf("Expected SendIOPS ~1.0, got %.2f", snap.SendIOPS)
	}

	if snap.SendBandwidth < 1000 || snap.SendBandwidth > 1050 {
		t.Errorf("Expected SendBandwidth ~1024, got %.2f", snap.SendBandwidth)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.ObserveSend(1024, 500_000, true) // 500us
	}
	for i := 0; i < 49; i++ {
		m.ObserveRMAWrite(1024, 5_000_000, true) // 5ms
	}
	m.ObserveRMAWrite(1024, 50_000_000, true) // 50ms (P99)

	snap := m.Snapshot()

	if snap.TotalOps != 100 {
		t.Errorf("Expected 100 total ops, got %d", snap.TotalOps)
	}

	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("Expected P50 in 100us-1ms range, got %d ns", snap.LatencyP50Ns)
	}

	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("Expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}

func TestMetricsPrometheusCollector(t *testing.T) {
	m := NewMetrics()
	m.ObserveSend(1024, 1_000_000, true)

	descCh := make(chan *prometheus.Desc, 32)
	go func() {
		m.Describe(descCh)
		close(descCh)
	}()
	descCount := 0
	for range descCh {
		descCount++
	}
	if descCount == 0 {
		t.Error("expected Describe to emit at least one prometheus.Desc")
	}

	metricCh := make(chan prometheus.Metric, 32)
	go func() {
		m.Collect(metricCh)
		close(metricCh)
	}()
	metricCount := 0
	for range metricCh {
		metricCount++
	}
	if metricCount == 0 {
		t.Error("expected Collect to emit at least one prometheus.Metric")
	}
}
