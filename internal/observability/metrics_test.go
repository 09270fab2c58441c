package observability

import "testing"

func TestMetricsRecordersDoNotPanic(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics() // idempotent

	RecordRequest("book", "ok", 0.001)
	RecordRequest("book", "error", 0.002)
	RecordReplay()
	RecordDrop("reply")
	RecordDrop("update")
	RecordMonitorUpdate()
	SetReplyCacheSize(3)
}
