// FILE: logweave/src/cmd/logweave/flags.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// FlagConfig holds the flags handled by the command itself. Every other
// --key=value argument is a settings override passed to the config loader.
type FlagConfig struct {
	ShowVersion bool
	Quiet       bool
	SaveConfig  string
}

var ownFlags = map[string]bool{
	"version":     true,
	"quiet":       true,
	"save-config": true,
	"help":        true,
	"h":           true,
}

// ParseFlags splits args into command flags and settings overrides
func ParseFlags(args []string) (*FlagConfig, []string, error) {
	own, rest := splitArgs(args)

	cfg := &FlagConfig{}
	fs := flag.NewFlagSet("logweave", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = customUsage
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Suppress command output")
	fs.StringVar(&cfg.SaveConfig, "save-config", "", "Write the resolved settings to a TOML file and exit")

	if err := fs.Parse(own); err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

func splitArgs(args []string) (own, rest []string) {
	for _, arg := range args {
		name := strings.TrimLeft(arg, "-")
		name, _, _ = strings.Cut(name, "=")
		if strings.HasPrefix(arg, "-") && ownFlags[name] {
			own = append(own, arg)
		} else {
			rest = append(rest, arg)
		}
	}
	return own, rest
}

func customUsage() {
	fmt.Fprintf(os.Stderr, "logweave - Route log lines from stdin through configured writers\n\n")
	fmt.Fprintf(os.Stderr, "Usage: %s [options] [--setting=value ...] < input\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "Options:\n")
	fmt.Fprintf(os.Stderr, "  -version\n\tShow version information\n")
	fmt.Fprintf(os.Stderr, "  -quiet\n\tSuppress command output\n")
	fmt.Fprintf(os.Stderr, "  -save-config string\n\tWrite the resolved settings to a TOML file and exit\n")

	fmt.Fprintf(os.Stderr, "\nSettings:\n")
	fmt.Fprintf(os.Stderr, "  --properties=a.toml,b.toml  Engine property files\n")
	fmt.Fprintf(os.Stderr, "  --tag=stdin                 Tag of every entry\n")
	fmt.Fprintf(os.Stderr, "  --default_level=info        Level of lines without a level keyword\n")
	fmt.Fprintf(os.Stderr, "  --drain_timeout_ms=5000     Shutdown drain timeout\n")
	fmt.Fprintf(os.Stderr, "  --diag.output=stderr        Diagnostic output: stdout, stderr, none\n")
	fmt.Fprintf(os.Stderr, "  --diag.level=warn           Diagnostic level: debug, info, warn, error\n")

	fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
	fmt.Fprintf(os.Stderr, "  LOGWEAVE_CONFIG_FILE     Settings file path\n")
	fmt.Fprintf(os.Stderr, "  LOGWEAVE_CONFIG_DIR      Settings directory\n")
	fmt.Fprintf(os.Stderr, "  LOGWEAVE_PROPERTIES      Engine property files\n")
	fmt.Fprintf(os.Stderr, "  LOGWEAVE_PROP_<KEY>      Override one engine property\n")
}
