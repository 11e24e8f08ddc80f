package logging

import (
	"os"
	"sync"
)

// sizeLimitedWriter appends to a single log file and starts the file over
// when the next write would push it past the cap. Game servers run for weeks;
// truncation keeps disk usage bounded without a rotation daemon.
type sizeLimitedWriter struct {
	path string
	cap  int64

	mu   sync.Mutex
	file *os.File
	used int64
}

func newSizeLimitedWriter(path string, maxMB int) (*sizeLimitedWriter, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	w := &sizeLimitedWriter{path: path, cap: int64(maxMB) << 20}
	if err := w.reopen(false); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *sizeLimitedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		if err := w.reopen(false); err != nil {
			return 0, err
		}
	}
	if w.used+int64(len(p)) > w.cap {
		if err := w.reopen(true); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.used += int64(n)
	return n, err
}

func (w *sizeLimitedWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// reopen (re)opens the log file, truncating it when the cap is hit. Callers
// hold mu.
func (w *sizeLimitedWriter) reopen(truncate bool) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	flags := os.O_CREATE | os.O_WRONLY
	if truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(w.path, flags, 0o644)
	if err != nil {
		return err
	}
	w.used = 0
	if !truncate {
		if info, err := f.Stat(); err == nil {
			w.used = info.Size()
		}
	}
	w.file = f
	return nil
}
