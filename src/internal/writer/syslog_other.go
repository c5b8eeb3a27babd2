// FILE: logweave/src/internal/writer/syslog_other.go
//go:build windows || plan9

package writer

import "errors"

func openPlatformSyslog(SyslogTarget) (SyslogSink, error) {
	return nil, errors.New("syslog is not available on this platform")
}
