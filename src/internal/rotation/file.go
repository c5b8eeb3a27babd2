// FILE: logweave/src/internal/rotation/file.go
package rotation

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"logweave/src/internal/core"
)

// State of a rotating file
type State int32

const (
	StateOpen State = iota
	StateRotating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateRotating:
		return "rotating"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Options configures a rotating file
type Options struct {
	Labels   *LabelGenerator
	Policies Policies
	// Append continues an existing initial file, otherwise a free name is chosen next to it
	Append bool
	// Buffered batches writes in memory until rotation, Flush or Close
	Buffered bool
	// Now stamps the initial file, defaults to time.Now
	Now func() time.Time
	// Open is replaceable for tests
	Open func(path string, flag int) (*os.File, error)
}

// File is a file-backed output that rolls over according to its policies.
// OPEN -> ROTATING -> OPEN on every rotation; CLOSED is terminal.
type File struct {
	mu        sync.Mutex
	opts      Options
	file      *os.File
	buf       *bufio.Writer
	meta      FileMeta
	state     State
	rotations uint64
}

// OpenFile opens the initial file named by the label template
func OpenFile(opts Options) (*File, error) {
	if opts.Labels == nil {
		return nil, errors.New("rotating file requires a label generator")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Open == nil {
		opts.Open = openFile
	}

	f := &File{opts: opts}
	now := opts.Now()
	path := opts.Labels.Resolve(now)

	// Without append an existing file is kept and the first file takes a free name
	flag := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !opts.Append {
		unique, err := opts.Labels.Unique(path)
		if err != nil {
			return nil, &core.RotationError{Path: path, Err: err}
		}
		path = unique
		flag = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}

	existed := opts.Append && opts.Labels.exists(path)
	if err := f.install(path, flag, now); err != nil {
		return nil, err
	}
	f.meta.Created = !existed
	if existed {
		f.continueExisting(now)
	}
	return f, nil
}

// continueExisting dates an appended file from its last write, so time based
// policies measure from there rather than from process start
func (f *File) continueExisting(now time.Time) {
	info, err := f.file.Stat()
	if err != nil || info.Size() == 0 {
		return
	}
	if mod := info.ModTime(); mod.Before(now) {
		f.meta.OpenedAt = mod
	}
}

func openFile(path string, flag int) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, flag, 0644)
}

// install opens path and makes it the current handle; the previous handle is left untouched
func (f *File) install(path string, flag int, now time.Time) error {
	h, err := f.opts.Open(path, flag)
	if err != nil {
		return &core.RotationError{Path: path, Err: err}
	}

	var size int64
	if info, err := h.Stat(); err == nil {
		size = info.Size()
	}

	f.file = h
	if f.opts.Buffered {
		f.buf = bufio.NewWriter(h)
	} else {
		f.buf = nil
	}
	f.meta = FileMeta{Path: path, Size: size, OpenedAt: now, Created: true}
	return nil
}

// Write appends data, rotating first when a policy triggers for e. A failed rotation
// returns a RotationError after the data went to the previous file.
func (f *File) Write(e *core.LogEntry, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateClosed {
		return core.ErrClosed
	}

	var rotErr error
	if f.opts.Policies.ShouldRotate(e, f.meta) {
		rotErr = f.rotate(e.Time())
	}

	if f.file == nil {
		return errors.Join(rotErr, core.ErrClosed)
	}
	if err := f.write(data); err != nil {
		return errors.Join(rotErr, fmt.Errorf("failed to write %s: %w", f.meta.Path, err))
	}
	return rotErr
}

func (f *File) write(data []byte) error {
	var n int
	var err error
	if f.buf != nil {
		n, err = f.buf.Write(data)
	} else {
		n, err = f.file.Write(data)
	}
	f.meta.Size += int64(n)
	return err
}

// rotate opens the next file before releasing the current one so a failed open
// leaves the previous handle usable
func (f *File) rotate(now time.Time) error {
	f.state = StateRotating
	defer func() { f.state = StateOpen }()

	prev, prevBuf := f.file, f.buf
	prevMeta := f.meta

	path, err := f.opts.Labels.Next(now)
	if err != nil {
		return &core.RotationError{Path: prevMeta.Path, Err: err}
	}
	if err := f.install(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, now); err != nil {
		f.file, f.buf, f.meta = prev, prevBuf, prevMeta
		return err
	}

	f.rotations++
	f.opts.Policies.Rotated(f.meta)

	if prev != nil {
		var closeErr error
		if prevBuf != nil {
			closeErr = prevBuf.Flush()
		}
		if err := prev.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
		if closeErr != nil {
			return &core.RotationError{Path: prevMeta.Path, Err: fmt.Errorf("closing previous file: %w", closeErr)}
		}
	}
	return nil
}

// Flush writes buffered data to the file
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buf == nil || f.state == StateClosed {
		return nil
	}
	return f.buf.Flush()
}

// Close flushes and closes the current file. Further calls return nil.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateClosed {
		return nil
	}
	f.state = StateClosed

	if f.file == nil {
		return nil
	}
	var err error
	if f.buf != nil {
		err = f.buf.Flush()
	}
	if cerr := f.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	f.file, f.buf = nil, nil
	return err
}

func (f *File) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Meta returns the metadata of the current file
func (f *File) Meta() FileMeta {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meta
}

// Rotations returns the number of completed rotations
func (f *File) Rotations() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rotations
}
