// FILE: logweave/src/internal/writer/syslog.go
package writer

import (
	"fmt"
	"strings"
	"sync"

	"logweave/src/internal/core"
	"logweave/src/internal/format"
)

// Severity is a syslog severity code
type Severity int

const (
	SeverityEmergency Severity = iota
	SeverityAlert
	SeverityCritical
	SeverityError
	SeverityWarning
	SeverityNotice
	SeverityInfo
	SeverityDebug
)

// SeverityOf maps a level onto syslog severities
func SeverityOf(l core.Level) Severity {
	switch l {
	case core.LevelError:
		return SeverityError
	case core.LevelWarn:
		return SeverityWarning
	case core.LevelInfo:
		return SeverityInfo
	default:
		return SeverityDebug
	}
}

var facilities = map[string]int{
	"kern": 0, "user": 1, "mail": 2, "daemon": 3, "auth": 4, "syslog": 5,
	"lpr": 6, "news": 7, "uucp": 8, "cron": 9, "authpriv": 10, "ftp": 11,
	"local0": 16, "local1": 17, "local2": 18, "local3": 19,
	"local4": 20, "local5": 21, "local6": 22, "local7": 23,
}

// SyslogSink is the platform log service. An empty tag leaves the choice of ident to the sink.
type SyslogSink interface {
	Send(severity Severity, tag, message string) error
	Close() error
}

// SyslogTarget selects the syslog service; an empty Address means the local daemon
type SyslogTarget struct {
	Network  string
	Address  string
	Facility int
}

// openSyslogSink is the platform implementation, replaceable for tests
var openSyslogSink = openPlatformSyslog

// Syslog renders a message pattern and an optional tag pattern and forwards both to the
// platform sink. Without a tag pattern no tag is attached.
type Syslog struct {
	message  *format.Pattern
	tag      format.Placeholder
	sink     SyslogSink
	once     sync.Once
	closeErr error
}

// NewSyslog creates a syslog writer.
// Keys: tag-pattern, tag-max-length, facility, network, address.
func NewSyslog(ctx *Context) (Writer, error) {
	message, err := ctx.Pattern(KeyMessagePattern, ctx.String(KeyPatternAlias, "{message}"))
	if err != nil {
		return nil, err
	}

	w := &Syslog{message: message}

	tagPattern, err := ctx.Pattern(KeyTagPattern, "")
	if err != nil {
		return nil, err
	}
	if tagPattern != nil {
		maxLen, err := ctx.Int("tag-max-length", format.DefaultTagMaxLength)
		if err != nil {
			return nil, err
		}
		if maxLen < 4 {
			return nil, ctx.ConfigError("tag-max-length", fmt.Errorf("must be at least 4, got %d", maxLen))
		}
		w.tag = format.Truncate(format.AsPlaceholder(tagPattern), maxLen)
	}

	facilityName := strings.ToLower(ctx.String("facility", "user"))
	facility, ok := facilities[facilityName]
	if !ok {
		return nil, ctx.ConfigError("facility", fmt.Errorf("unknown facility %q", facilityName))
	}

	target := SyslogTarget{
		Network:  ctx.String("network", ""),
		Address:  ctx.String("address", ""),
		Facility: facility,
	}
	if (target.Network == "") != (target.Address == "") {
		return nil, ctx.ConfigError("address", fmt.Errorf("network and address must be set together"))
	}

	sink, err := openSyslogSink(target)
	if err != nil {
		return nil, ctx.ConfigError("", fmt.Errorf("failed to open syslog: %w", err))
	}
	w.sink = sink
	return w, nil
}

func (w *Syslog) Log(e *core.LogEntry) error {
	var tag string
	if w.tag != nil {
		var sb strings.Builder
		w.tag.Render(&sb, e)
		tag = sb.String()
	}
	return w.sink.Send(SeverityOf(e.Level()), tag, w.message.Render(e))
}

func (w *Syslog) Fields() core.Fields {
	fields := w.message.Fields()
	if w.tag != nil {
		fields |= w.tag.Fields()
	}
	return fields
}

func (w *Syslog) Close() error {
	w.once.Do(func() { w.closeErr = w.sink.Close() })
	return w.closeErr
}
