package ports

// ReportSink records pre-rendered messages such as block logs and metrics reports.
// Each call must be recorded atomically: concurrent messages never interleave.
type ReportSink interface {
	Log(msg string)
}
