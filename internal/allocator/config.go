package allocator

import (
	"unsafe"

	poolerrors "github.com/orizon-lang/slotpool/internal/errors"
)

// ptrSize is sizeof(nextPointer): the width of the free-list/page-list
// link embedded at the front of every free user region and every page.
const ptrSize = unsafe.Sizeof(uintptr(0))

// HeaderKind selects one of the four per-slot header variants.
type HeaderKind int

const (
	// HeaderNone stores no per-slot bookkeeping.
	HeaderNone HeaderKind = iota
	// HeaderBasic stores a 4-byte allocation counter and a 1-byte in-use flag.
	HeaderBasic
	// HeaderExtended stores userDefinedBytes opaque bytes, a 2-byte use
	// counter, a 4-byte allocation counter, and a 1-byte in-use flag.
	HeaderExtended
	// HeaderExternal stores a single pointer to a heap-allocated descriptor.
	HeaderExternal
)

// Config is the immutable-after-construction configuration of a Pool,
// except for the debug-checks toggle which SetDebugChecks may flip
// after construction. Build one with NewConfig and functional Options.
type Config struct {
	ObjectSize       uintptr
	ObjectsPerPage   int
	MaxPages         int // 0 means unbounded
	Alignment        uintptr
	LeftPadBytes     uintptr
	HeaderKind       HeaderKind
	UserDefinedBytes uintptr // HeaderExtended sub-parameter
	UseSystemHeap    bool
	DebugChecks      bool
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithObjectsPerPage sets the number of slots per page. Default 64.
func WithObjectsPerPage(n int) Option {
	return func(c *Config) { c.ObjectsPerPage = n }
}

// WithMaxPages caps the number of live pages; 0 means unbounded (default).
func WithMaxPages(n int) Option {
	return func(c *Config) { c.MaxPages = n }
}

// WithAlignment requires each user slot be aligned to a power-of-two
// boundary. 0 or 1 disables alignment padding (the default).
func WithAlignment(a uintptr) Option {
	return func(c *Config) { c.Alignment = a }
}

// WithLeftPad pads n bytes immediately before and after each user
// region, used by debug-mode corruption detection.
func WithLeftPad(n uintptr) Option {
	return func(c *Config) { c.LeftPadBytes = n }
}

// WithHeader selects a header variant. userDefinedBytes is consulted
// only for HeaderExtended.
func WithHeader(kind HeaderKind, userDefinedBytes uintptr) Option {
	return func(c *Config) {
		c.HeaderKind = kind
		c.UserDefinedBytes = userDefinedBytes
	}
}

// WithSystemHeapBypass forwards every Acquire/Release directly to the
// system heap, skipping pages and the free list entirely.
func WithSystemHeapBypass(enabled bool) Option {
	return func(c *Config) { c.UseSystemHeap = enabled }
}

// WithDebugChecks enables release-time double-free/boundary/padding
// verification. Can also be toggled later via Pool.SetDebugChecks.
func WithDebugChecks(enabled bool) Option {
	return func(c *Config) { c.DebugChecks = enabled }
}

func defaultConfig(objectSize uintptr) Config {
	return Config{
		ObjectSize:     objectSize,
		ObjectsPerPage: 64,
		MaxPages:       0,
		Alignment:      0,
		LeftPadBytes:   0,
		HeaderKind:     HeaderNone,
		UseSystemHeap:  false,
		DebugChecks:    false,
	}
}

// NewConfig validates objectSize and the applied Options and returns an
// immutable snapshot. It does not compute page geometry; that happens
// once at Pool construction (see newGeometry).
func NewConfig(objectSize uintptr, opts ...Option) (Config, error) {
	cfg := defaultConfig(objectSize)
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.ObjectSize < ptrSize {
		return Config{}, poolerrors.ConfigurationInvalidErr("NewConfig", map[string]interface{}{
			"objectSize": cfg.ObjectSize,
			"minimum":    ptrSize,
		})
	}

	if cfg.ObjectsPerPage < 1 {
		return Config{}, poolerrors.ConfigurationInvalidErr("NewConfig", map[string]interface{}{
			"objectsPerPage": cfg.ObjectsPerPage,
		})
	}

	if cfg.Alignment > 1 && !isPowerOfTwo(cfg.Alignment) {
		return Config{}, poolerrors.ConfigurationInvalidErr("NewConfig", map[string]interface{}{
			"alignment": cfg.Alignment,
		})
	}

	return cfg, nil
}

func isPowerOfTwo(v uintptr) bool {
	return v != 0 && v&(v-1) == 0
}
