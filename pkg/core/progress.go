package core

import "io"

// ProgressSink receives per-file transfer progress events.
//
// This is the sole channel over which the engine reports transfer progress:
// the engine itself never blocks on terminal I/O. Sinks must tolerate
// concurrent OnProgress calls from parallel transfers.
type ProgressSink interface {
	OnStart(label string, totalSize int64)
	OnProgress(bytes int64)
	OnFinish()
}

// NoopProgress discards all progress events
type NoopProgress struct{}

func (NoopProgress) OnStart(string, int64) {}
func (NoopProgress) OnProgress(int64)      {}
func (NoopProgress) OnFinish()             {}

// progressReader reports bytes read to a sink as a side effect
type progressReader struct {
	r    io.Reader
	sink ProgressSink
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sink.OnProgress(int64(n))
	}
	return n, err
}
