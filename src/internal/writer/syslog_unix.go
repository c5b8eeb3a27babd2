// FILE: logweave/src/internal/writer/syslog_unix.go
//go:build !windows && !plan9

package writer

import (
	"fmt"
	"log/syslog"
	"sync"
)

// platformSyslog keeps one connection per tag since the ident is fixed per connection
type platformSyslog struct {
	target SyslogTarget

	mu      sync.Mutex
	writers map[string]*syslog.Writer
}

func openPlatformSyslog(target SyslogTarget) (SyslogSink, error) {
	s := &platformSyslog{target: target, writers: make(map[string]*syslog.Writer)}
	// Probe the service so configuration errors surface at startup
	if _, err := s.writer(""); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *platformSyslog) writer(tag string) (*syslog.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.writers[tag]; ok {
		return w, nil
	}
	priority := syslog.Priority(s.target.Facility<<3) | syslog.LOG_INFO
	w, err := syslog.Dial(s.target.Network, s.target.Address, priority, tag)
	if err != nil {
		return nil, fmt.Errorf("opening syslog: %w", err)
	}
	s.writers[tag] = w
	return w, nil
}

func (s *platformSyslog) Send(severity Severity, tag, message string) error {
	w, err := s.writer(tag)
	if err != nil {
		return err
	}

	ops := map[Severity]func(string) error{
		SeverityDebug:   w.Debug,
		SeverityInfo:    w.Info,
		SeverityWarning: w.Warning,
		SeverityError:   w.Err,
	}
	if op, found := ops[severity]; found {
		if err := op(message); err != nil {
			return fmt.Errorf("writing to syslog: %w", err)
		}
	}
	return nil
}

func (s *platformSyslog) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for tag, w := range s.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.writers, tag)
	}
	return firstErr
}
