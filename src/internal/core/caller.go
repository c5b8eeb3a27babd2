// FILE: logweave/src/internal/core/caller.go
package core

import (
	"bytes"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Caller describes the call site of a log statement. Class is the package path
// joined with the receiver type when the caller is a method.
type Caller struct {
	Class  string
	Method string
	File   string
	Line   int
}

// ClassName returns the simple name of Class: the part after the last dot
// that follows the last slash ("org.foo.MyClass" -> "MyClass").
func (c Caller) ClassName() string {
	return simpleName(c.Class)
}

// Package returns Class without its simple name
func (c Caller) Package() string {
	name := simpleName(c.Class)
	pkg := strings.TrimSuffix(c.Class, name)
	return strings.TrimSuffix(pkg, ".")
}

func simpleName(class string) string {
	tail := class
	if i := strings.LastIndexByte(tail, '/'); i >= 0 {
		tail = tail[i+1:]
	}
	if i := strings.LastIndexByte(tail, '.'); i >= 0 {
		return tail[i+1:]
	}
	return tail
}

type callerRef struct {
	once     sync.Once
	pc       uintptr
	resolved Caller
}

func resolvedCaller(c Caller) *callerRef {
	ref := &callerRef{resolved: c}
	ref.once.Do(func() {})
	return ref
}

func captureCaller(skip int) *callerRef {
	var pcs [1]uintptr
	// +2 skips runtime.Callers and captureCaller
	if runtime.Callers(skip+2, pcs[:]) == 0 {
		return nil
	}
	return &callerRef{pc: pcs[0]}
}

func (r *callerRef) resolve() Caller {
	r.once.Do(func() {
		frame, _ := runtime.CallersFrames([]uintptr{r.pc}).Next()
		r.resolved = callerFromFrame(frame)
	})
	return r.resolved
}

// callerFromFrame splits a fully qualified function name such as
// "example.com/app/pkg.(*Server).Handle" into class and method.
func callerFromFrame(frame runtime.Frame) Caller {
	c := Caller{File: frame.File, Line: frame.Line}

	fn := frame.Function
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		c.Method = fn
		return c
	}
	dot += slash + 1
	pkg, rest := fn[:dot], fn[dot+1:]

	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		recv := strings.Trim(rest[:i], "(*)")
		c.Class = pkg + "." + recv
		c.Method = rest[i+1:]
	} else {
		c.Class = pkg
		c.Method = rest
	}
	return c
}

// GoroutineID returns the numeric id of the calling goroutine as a string
func GoroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	if _, err := strconv.ParseUint(string(b), 10, 64); err != nil {
		return ""
	}
	return string(b)
}
