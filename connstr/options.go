package connstr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmpty is returned for a blank connection string
	ErrEmpty = errors.New("connection string is empty")

	// ErrMissingKey is returned when a required key is absent
	ErrMissingKey = errors.New("connection string is missing a required key")

	// ErrInvalidValue is returned when a value cannot be interpreted for its key
	ErrInvalidValue = errors.New("invalid connection string value")

	// ErrUnknownKey is returned for keys this parser does not recognize
	ErrUnknownKey = errors.New("unknown connection string key")
)

// MemoryDataSource opens a private in-memory database
const MemoryDataSource = ":memory:"

// SupportedVersion is the only accepted value of the Version key
const SupportedVersion = 3

// DefaultTimeout applies when Default Timeout is not given
const DefaultTimeout = 30 * time.Second

// DateTimeFormat selects how timestamp values are stored and read
type DateTimeFormat int

const (
	// ISO8601 stores text and only accepts ISO-8601 text on read
	ISO8601 DateTimeFormat = iota
	// UnixEpoch stores and reads integer seconds since 1970-01-01 UTC
	UnixEpoch
	// Ticks stores and reads 100ns ticks since 0001-01-01
	Ticks
	// JulianDay stores and reads fractional Julian day numbers
	JulianDay
)

var dateTimeFormatNames = map[DateTimeFormat]string{
	ISO8601:   "ISO8601",
	UnixEpoch: "UnixEpoch",
	Ticks:     "Ticks",
	JulianDay: "JulianDay",
}

func (f DateTimeFormat) String() string {
	if name, ok := dateTimeFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("DateTimeFormat(%d)", int(f))
}

// DateTimeKind selects the zone of times produced by readers and bound as parameters
type DateTimeKind int

const (
	Utc DateTimeKind = iota
	Local
)

func (k DateTimeKind) String() string {
	if k == Local {
		return "Local"
	}
	return "Utc"
}

// Location returns the time zone for the kind
func (k DateTimeKind) Location() *time.Location {
	if k == Local {
		return time.Local
	}
	return time.UTC
}

// Engine keys understood by the Engine option
const (
	EngineModernc = "modernc"
	EngineCgo     = "cgo"
)

// Options is the normalized form of a connection string
type Options struct {
	DataSource     string
	Version        int
	DateTimeFormat DateTimeFormat
	DateTimeKind   DateTimeKind
	FailIfMissing  bool
	ReadOnly       bool
	ForeignKeys    bool
	BinaryGUID     bool
	DefaultTimeout time.Duration
	JournalMode    string
	Synchronous    string
	CacheSize      int
	PageSize       int
	Engine         string
}

// IsMemory reports whether the data source is an in-memory database
func (o Options) IsMemory() bool {
	return o.DataSource == MemoryDataSource
}

type setter func(o *Options, value string) error

var keySetters = map[string]setter{
	"uri":            setURI,
	"fulluri":        setURI,
	"datasource":     setDataSource,
	"version":        setVersion,
	"datetimeformat": setDateTimeFormat,
	"datetimekind":   setDateTimeKind,
	"failifmissing":  boolSetter(func(o *Options, b bool) { o.FailIfMissing = b }),
	"readonly":       boolSetter(func(o *Options, b bool) { o.ReadOnly = b }),
	"foreignkeys":    boolSetter(func(o *Options, b bool) { o.ForeignKeys = b }),
	"binaryguid":     boolSetter(func(o *Options, b bool) { o.BinaryGUID = b }),
	"defaulttimeout": setDefaultTimeout,
	"journalmode":    enumSetter([]string{"Delete", "Truncate", "Persist", "Memory", "WAL", "Off"}, func(o *Options, v string) { o.JournalMode = v }),
	"synchronous":    enumSetter([]string{"Off", "Normal", "Full", "Extra"}, func(o *Options, v string) { o.Synchronous = v }),
	"cachesize":      intSetter(func(o *Options, n int) { o.CacheSize = n }),
	"pagesize":       intSetter(func(o *Options, n int) { o.PageSize = n }),
	"engine":         enumSetter([]string{EngineModernc, EngineCgo}, func(o *Options, v string) { o.Engine = v }),
}

// Parse tokenizes and normalizes a connection string.
// A data source (URI or Data Source) and Version=3 are required.
func Parse(s string) (Options, error) {
	opts := Options{
		BinaryGUID:     true,
		DefaultTimeout: DefaultTimeout,
		Engine:         EngineModernc,
	}

	if strings.TrimSpace(s) == "" {
		return opts, ErrEmpty
	}

	pairs, err := Tokenize(s)
	if err != nil {
		return opts, err
	}

	for _, p := range pairs {
		set, ok := keySetters[p.Key]
		if !ok {
			return opts, fmt.Errorf("%w: %q", ErrUnknownKey, p.Raw)
		}
		if err := set(&opts, p.Value); err != nil {
			return opts, fmt.Errorf("%s: %w", p.Raw, err)
		}
	}

	if opts.DataSource == "" {
		return opts, fmt.Errorf("%w: URI or Data Source", ErrMissingKey)
	}
	if opts.Version == 0 {
		return opts, fmt.Errorf("%w: Version", ErrMissingKey)
	}

	return opts, nil
}

// String renders the options in canonical form. Parse(o.String()) yields o.
func (o Options) String() string {
	parts := []string{
		"URI=" + quoteValue(uriFor(o.DataSource)),
		"Version=" + strconv.Itoa(o.Version),
	}
	if o.DateTimeFormat != ISO8601 {
		parts = append(parts, "DateTimeFormat="+o.DateTimeFormat.String())
	}
	if o.DateTimeKind != Utc {
		parts = append(parts, "DateTimeKind="+o.DateTimeKind.String())
	}
	flags := map[string]bool{
		"FailIfMissing": o.FailIfMissing,
		"Read Only":     o.ReadOnly,
		"Foreign Keys":  o.ForeignKeys,
	}
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if flags[name] {
			parts = append(parts, name+"=True")
		}
	}
	if !o.BinaryGUID {
		parts = append(parts, "BinaryGUID=False")
	}
	if o.DefaultTimeout != DefaultTimeout {
		parts = append(parts, fmt.Sprintf("Default Timeout=%d", int(o.DefaultTimeout/time.Second)))
	}
	if o.JournalMode != "" {
		parts = append(parts, "Journal Mode="+o.JournalMode)
	}
	if o.Synchronous != "" {
		parts = append(parts, "Synchronous="+o.Synchronous)
	}
	if o.CacheSize != 0 {
		parts = append(parts, fmt.Sprintf("Cache Size=%d", o.CacheSize))
	}
	if o.PageSize != 0 {
		parts = append(parts, fmt.Sprintf("Page Size=%d", o.PageSize))
	}
	if o.Engine != "" && o.Engine != EngineModernc {
		parts = append(parts, "Engine="+o.Engine)
	}
	return strings.Join(parts, ", ")
}

func uriFor(dataSource string) string {
	if dataSource == MemoryDataSource {
		return dataSource
	}
	return "file://" + dataSource
}

func quoteValue(v string) string {
	if !strings.ContainsAny(v, `,='"`) {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func setURI(o *Options, value string) error {
	switch {
	case value == MemoryDataSource:
		o.DataSource = MemoryDataSource
	case strings.HasPrefix(strings.ToLower(value), "file://"):
		o.DataSource = value[len("file://"):]
	case strings.HasPrefix(strings.ToLower(value), "file:"):
		o.DataSource = value[len("file:"):]
	default:
		return fmt.Errorf("%w: URI must start with file:// (got %q)", ErrInvalidValue, value)
	}
	if o.DataSource == "" {
		return fmt.Errorf("%w: URI has an empty path", ErrInvalidValue)
	}
	return nil
}

func setDataSource(o *Options, value string) error {
	if value == "" {
		return fmt.Errorf("%w: Data Source is empty", ErrInvalidValue)
	}
	o.DataSource = value
	return nil
}

func setVersion(o *Options, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil || v != SupportedVersion {
		return fmt.Errorf("%w: only version %d is supported (got %q)", ErrInvalidValue, SupportedVersion, value)
	}
	o.Version = v
	return nil
}

func setDateTimeFormat(o *Options, value string) error {
	for f, name := range dateTimeFormatNames {
		if strings.EqualFold(name, value) {
			o.DateTimeFormat = f
			return nil
		}
	}
	return fmt.Errorf("%w: unknown DateTimeFormat %q", ErrInvalidValue, value)
}

func setDateTimeKind(o *Options, value string) error {
	switch strings.ToLower(value) {
	case "utc":
		o.DateTimeKind = Utc
	case "local":
		o.DateTimeKind = Local
	default:
		return fmt.Errorf("%w: unknown DateTimeKind %q", ErrInvalidValue, value)
	}
	return nil
}

func setDefaultTimeout(o *Options, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("%w: Default Timeout must be a non-negative number of seconds (got %q)", ErrInvalidValue, value)
	}
	o.DefaultTimeout = time.Duration(n) * time.Second
	return nil
}

func boolSetter(apply func(*Options, bool)) setter {
	return func(o *Options, value string) error {
		b, err := ParseBool(value)
		if err != nil {
			return err
		}
		apply(o, b)
		return nil
	}
}

func intSetter(apply func(*Options, int)) setter {
	return func(o *Options, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: expected an integer (got %q)", ErrInvalidValue, value)
		}
		apply(o, n)
		return nil
	}
}

// enumSetter matches case-insensitively and stores the canonical spelling
func enumSetter(allowed []string, apply func(*Options, string)) setter {
	return func(o *Options, value string) error {
		for _, a := range allowed {
			if strings.EqualFold(a, value) {
				apply(o, a)
				return nil
			}
		}
		return fmt.Errorf("%w: %q is not one of %s", ErrInvalidValue, value, strings.Join(allowed, ", "))
	}
}

// ParseBool accepts True/False, Yes/No, On/Off and 1/0 in any case
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected a boolean (got %q)", ErrInvalidValue, value)
}
