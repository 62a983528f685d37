package sessionlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// DirName is the diagnostics directory created next to config.yaml.
	DirName = "diagnostics"

	filePrefix = "diagnostics-"
	fileSuffix = ".jsonl"

	defaultMaxFiles   = 20
	defaultMaxEntries = 2000
	// NotifyInterval is the minimum spacing between Append results that ask
	// the caller to notify listeners.
	NotifyInterval = 50 * time.Millisecond
)

// ErrNoLogFile is returned by Latest when dir holds no diagnostics files.
var ErrNoLogFile = errors.New("no diagnostics log file")

// Options tunes a Log. Zero values use defaults.
type Options struct {
	MaxFiles   int
	MaxEntries int
}

// Log is the diagnostics log of one application run: a ring buffer of recent
// entries mirrored to a JSON-lines file.
//
// Append is called from inside the slog handler chain, so nothing in this
// type logs through slog while mu is held. Internal failures go to stderr.
type Log struct {
	mu         sync.RWMutex
	file       *os.File
	path       string
	entries    ringBuffer
	seq        uint64
	lastNotify time.Time

	now func() time.Time
}

// Open creates a new log file in dir and removes the oldest files beyond
// opts.MaxFiles. A Log without a file still buffers entries, so callers may
// keep using the returned Log even when err is non-nil.
func Open(dir string, opts Options) (*Log, error) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = defaultMaxFiles
	}
	l := &Log{entries: newRingBuffer(opts.MaxEntries), now: time.Now}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return l, fmt.Errorf("create diagnostics dir: %w", err)
	}
	// PID suffix keeps sub-second restarts from sharing a file.
	name := fmt.Sprintf("%s%s-%d%s", filePrefix, time.Now().Format("20060102-150405"), os.Getpid(), fileSuffix)
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return l, fmt.Errorf("open diagnostics file: %w", err)
	}
	l.file = f
	l.path = path

	if err := removeOldFiles(dir, name, opts.MaxFiles); err != nil {
		slog.Warn("[session-log] failed to prune old diagnostics files", "dir", dir, "error", err)
	}
	return l, nil
}

// Path returns the file backing this log, or "" when none is open.
func (l *Log) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.path
}

// Append stores entry and reports whether listeners should be notified.
// Notifications are throttled to one per NotifyInterval; a skipped
// notification loses nothing because listeners re-read Snapshot.
func (l *Log) Append(entry Entry) bool {
	var writeErr error
	var syncFile *os.File
	notify := false

	l.mu.Lock()
	l.seq++
	entry.Seq = l.seq
	if l.file != nil {
		raw, err := json.Marshal(entry)
		if err == nil {
			_, err = l.file.Write(append(raw, '\n'))
		}
		if err != nil {
			writeErr = err
		} else if entry.Level == "error" {
			syncFile = l.file
		}
	}
	l.entries.push(entry)
	now := l.now()
	if now.Sub(l.lastNotify) >= NotifyInterval {
		l.lastNotify = now
		notify = true
	}
	l.mu.Unlock()

	if syncFile != nil {
		if err := syncFile.Sync(); err != nil && !isCloseRace(err) {
			fmt.Fprintf(os.Stderr, "[session-log] failed to sync log file: %v\n", err)
		}
	}
	if writeErr != nil {
		fmt.Fprintf(os.Stderr, "[session-log] failed to write log entry: %v\n", writeErr)
	}
	return notify
}

// Snapshot returns buffered entries oldest first.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries.snapshot()
}

// Close closes the file. Buffered entries stay readable.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Close may race a post-unlock Sync during shutdown.
func isCloseRace(err error) bool {
	return errors.Is(err, os.ErrClosed) ||
		(runtime.GOOS == "windows" && errors.Is(err, syscall.EINVAL))
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	// Timestamped names sort by creation time.
	sort.Strings(names)
	return names, nil
}

func removeOldFiles(dir, current string, maxFiles int) error {
	names, err := listFiles(dir)
	if err != nil {
		return err
	}
	excess := len(names) - maxFiles
	var errs []error
	for _, name := range names {
		if excess <= 0 {
			break
		}
		if name == current {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		excess--
	}
	return errors.Join(errs...)
}

// Latest returns the newest diagnostics file in dir.
func Latest(dir string) (string, error) {
	names, err := listFiles(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(names) == 0) {
		return "", fmt.Errorf("%s: %w", dir, ErrNoLogFile)
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, names[len(names)-1]), nil
}

// DecodeLine parses one line of a diagnostics file.
func DecodeLine(line []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(line, &e); err != nil {
		return Entry{}, fmt.Errorf("decode diagnostics line: %w", err)
	}
	return e, nil
}
