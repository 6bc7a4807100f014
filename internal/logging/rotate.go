package logging

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// dailyWriter opens <dir>/YYYY-MM-DD.log and reopens it whenever the UTC
// date changes, and truncates it once maxSize bytes have been written
// through this writer since the file was opened, giving a
// logs/YYYY-MM-DD.log on-disk layout with size-triggered truncation within
// a day.
type dailyWriter struct {
	mu      sync.Mutex
	dir     string
	maxSize int
	day     string
	written int
	file    *os.File
}

func newDailyWriter(dir string, maxSize int) (*dailyWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w := &dailyWriter{dir: dir, maxSize: maxSize}
	if err := w.openLocked(dailyFileName(time.Now())); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *dailyWriter) openLocked(name string) error {
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if w.file != nil {
		w.file.Close()
	}
	w.file = f
	w.day = name
	w.written = 0
	return nil
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := dailyFileName(time.Now())
	if name != w.day {
		_ = w.openLocked(name)
	} else if w.maxSize > 0 && w.written >= w.maxSize {
		f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err == nil {
			w.file.Close()
			w.file = f
			w.written = 0
		}
	}

	n, err := w.file.Write(p)
	w.written += n
	return n, err
}

func (w *dailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
