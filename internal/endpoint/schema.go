package endpoint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds every value that can be bound from endpoint options.
// Immutable once the endpoint is built.
type Config struct {
	// Charset names the text encoding of consumed content. Validated
	// against the IANA registry by the factory.
	Charset string

	// Delete removes a file after it has been processed.
	Delete bool

	// Recursive descends into subdirectories of the root.
	Recursive bool

	// Delay is the interval between polls. Default 500ms.
	Delay time.Duration

	// InitialDelay is the wait before the first poll. Default 1s.
	InitialDelay time.Duration

	// UseFixedDelay schedules polls a fixed interval after the previous
	// poll completed, rather than at a fixed rate. Default true.
	UseFixedDelay bool

	// BridgeErrorHandler routes poll errors into the processing callback
	// instead of only logging them. Default false.
	BridgeErrorHandler bool

	// AutoCreate creates the root directory at construction. Default true.
	AutoCreate bool

	// StartingDirectoryMustExist requires the root to exist when the
	// endpoint is built. Default false.
	StartingDirectoryMustExist bool

	// DirectoryMustExist requires the root to exist at poll time.
	// Default false.
	DirectoryMustExist bool

	// ReadLock names the lock-acquisition strategy applied before a file
	// is handed to the callback. Default "none".
	ReadLock string

	// Noop disables all post-processing and forces idempotent tracking.
	Noop bool

	// Idempotent skips files that were already consumed. Implied by Noop.
	Idempotent bool

	// Move relocates a file under this directory (relative to the root)
	// after successful processing.
	Move string

	// MoveFailed relocates a file under this directory when processing
	// fails.
	MoveFailed string

	// MaxMessagesPerPoll caps how many files one poll may consume.
	// Zero means unlimited.
	MaxMessagesPerPoll int

	// Include and Exclude filter discovered files by relative path.
	Include *regexp.Regexp
	Exclude *regexp.Regexp
}

// ReadLock strategy names form a closed set; anything else fails binding.
const (
	ReadLockNone       = "none"
	ReadLockChanged    = "changed"
	ReadLockRename     = "rename"
	ReadLockMarkerFile = "markerFile"
	ReadLockFileLock   = "fileLock"
)

var readLockNames = []string{
	ReadLockNone, ReadLockChanged, ReadLockRename, ReadLockMarkerFile, ReadLockFileLock,
}

func defaultConfig() Config {
	return Config{
		Delay:         500 * time.Millisecond,
		InitialDelay:  time.Second,
		UseFixedDelay: true,
		AutoCreate:    true,
		ReadLock:      ReadLockNone,
	}
}

// schema is the closed table of recognized option names. Read-only after
// init; lookups are safe from concurrent resolutions.
var schema = map[string]func(*Config, string) error{
	"charset": func(c *Config, v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("empty charset name")
		}
		c.Charset = v
		return nil
	},
	"delete":             boolOption(func(c *Config, b bool) { c.Delete = b }),
	"recursive":          boolOption(func(c *Config, b bool) { c.Recursive = b }),
	"useFixedDelay":      boolOption(func(c *Config, b bool) { c.UseFixedDelay = b }),
	"bridgeErrorHandler": boolOption(func(c *Config, b bool) { c.BridgeErrorHandler = b }),
	"autoCreate":         boolOption(func(c *Config, b bool) { c.AutoCreate = b }),
	"startingDirectoryMustExist": boolOption(func(c *Config, b bool) {
		c.StartingDirectoryMustExist = b
	}),
	"directoryMustExist": boolOption(func(c *Config, b bool) { c.DirectoryMustExist = b }),
	"noop":               boolOption(func(c *Config, b bool) { c.Noop = b }),
	"idempotent":         boolOption(func(c *Config, b bool) { c.Idempotent = b }),
	"delay":              durationOption(func(c *Config, d time.Duration) { c.Delay = d }),
	"initialDelay":       durationOption(func(c *Config, d time.Duration) { c.InitialDelay = d }),
	"readLock": func(c *Config, v string) error {
		for _, name := range readLockNames {
			if v == name {
				c.ReadLock = v
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(readLockNames, ", "))
	},
	"move": func(c *Config, v string) error {
		return parseMoveDir(v, &c.Move)
	},
	"moveFailed": func(c *Config, v string) error {
		return parseMoveDir(v, &c.MoveFailed)
	},
	"maxMessagesPerPoll": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer")
		}
		if n < 0 {
			return fmt.Errorf("must not be negative")
		}
		c.MaxMessagesPerPoll = n
		return nil
	},
	"include": regexpOption(func(c *Config, re *regexp.Regexp) { c.Include = re }),
	"exclude": regexpOption(func(c *Config, re *regexp.Regexp) { c.Exclude = re }),
}

// Bind maps raw options onto a Config. Every key must exist in the schema
// and every value must parse; absent keys take their declared default.
// Binding touches no filesystem state.
func Bind(raw map[string]string) (Config, error) {
	cfg := defaultConfig()
	for key, value := range raw {
		parse, ok := schema[key]
		if !ok {
			return Config{}, &UnknownOptionError{Key: key}
		}
		if err := parse(&cfg, value); err != nil {
			return Config{}, &InvalidOptionValueError{Key: key, Value: value, Cause: err}
		}
	}
	if cfg.Noop {
		cfg.Idempotent = true
	}
	return cfg, nil
}

func boolOption(set func(*Config, bool)) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("not a boolean")
		}
		set(c, b)
		return nil
	}
}

// durationOption accepts a bare integer (milliseconds) or a Go duration
// string. Negative durations are rejected.
func durationOption(set func(*Config, time.Duration)) func(*Config, string) error {
	return func(c *Config, v string) error {
		var d time.Duration
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			d = time.Duration(ms) * time.Millisecond
		} else {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("not a duration")
			}
			d = parsed
		}
		if d < 0 {
			return fmt.Errorf("must not be negative")
		}
		set(c, d)
		return nil
	}
}

func regexpOption(set func(*Config, *regexp.Regexp)) func(*Config, string) error {
	return func(c *Config, v string) error {
		re, err := regexp.Compile(v)
		if err != nil {
			return fmt.Errorf("not a valid regular expression")
		}
		set(c, re)
		return nil
	}
}

func parseMoveDir(v string, dst *string) error {
	v = strings.Trim(strings.ReplaceAll(v, `\`, "/"), "/")
	if v == "" {
		return fmt.Errorf("empty directory name")
	}
	if v == ".." || strings.HasPrefix(v, "../") || strings.Contains(v, "/../") {
		return fmt.Errorf("must stay under the root")
	}
	*dst = v
	return nil
}
