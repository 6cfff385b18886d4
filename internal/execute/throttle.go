package execute

import (
	"os"
	"sync"
	"time"
)

// throttledWriter limits write speed against a file (thread-safe). A max
// speed of 0 disables throttling.
type throttledWriter struct {
	file         *os.File
	maxSpeedMBps float64
	lastWrite    time.Time
	mu           sync.Mutex
}

func newThrottledWriter(file *os.File, maxSpeedMBps float64) *throttledWriter {
	return &throttledWriter{
		file:         file,
		maxSpeedMBps: maxSpeedMBps,
		lastWrite:    time.Now(),
	}
}

func (tw *throttledWriter) Write(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.maxSpeedMBps > 0 {
		bytesPerSec := tw.maxSpeedMBps * 1024 * 1024
		expected := time.Duration(float64(len(data)) / bytesPerSec * float64(time.Second))
		actual := time.Since(tw.lastWrite)
		if actual < expected {
			time.Sleep(expected - actual)
		}
	}

	n, err := tw.file.Write(data)
	tw.lastWrite = time.Now()
	return n, err
}

func (tw *throttledWriter) Sync() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.file.Sync()
}
