// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package config parses a prefix-scoped key/value configuration list:
// flat string pairs recognised by prefix (collector.<classname>,
// config.<classname>.*, config.prng.seeds.SeedStorage.*,
// network.source.<classname>), with "{name}" references interpolated
// against system properties or environment variables.
package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

const (
	prefixCollector      = "collector."
	prefixConfig         = "config."
	prefixSeedStorage    = "config.prng.seeds.SeedStorage."
	prefixNetworkSource  = "network.source."
	keyPRNGLoggingEnv    = "PRNG_LOGGING"
	keyPRNGLoggingDotted = "prng.logging"
	keyUserName          = "user.name"
)

// Properties is the source of "{name}" interpolation targets: a stand-in
// for Java-style system properties, since Go has no equivalent registry.
// Lookup falls back to the process environment when a name isn't
// present in the map.
type Properties map[string]string

// Lookup satisfies the Interpolator contract used by Config.
func (p Properties) Lookup(name string) (string, bool) {
	if v, ok := p[name]; ok {
		return v, true
	}
	return os.LookupEnv(name)
}

var interpolationPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// interpolate replaces every "{name}" reference in s with props.Lookup(name);
// a reference with no resolvable value is left verbatim, since a
// configuration string should fail loudly elsewhere (unknown collector,
// unparsable algorithm), not by silently vanishing.
func interpolate(s string, props Properties) string {
	return interpolationPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if v, ok := props.Lookup(name); ok {
			return v
		}
		return ref
	})
}

// Config is a parsed, interpolated view over the flat key/value
// configuration list. The zero value is not usable; use Parse.
type Config struct {
	entries map[string]string
}

// Parse builds a Config from pairs (alternating key, value, key, value,
// ...; an odd trailing key is ignored) and a properties source used to
// resolve "{name}" interpolation. Every value is interpolated eagerly
// at parse time.
func Parse(pairs []string, props Properties) *Config {
	if props == nil {
		props = Properties{}
	}
	entries := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		entries[pairs[i]] = interpolate(pairs[i+1], props)
	}
	return &Config{entries: entries}
}

// Get returns the raw (already interpolated) value for key.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Bool parses key as a boolean, defaulting to def if absent or
// unparsable (matches strconv.ParseBool's truthy/falsy spellings).
func (c *Config) Bool(key string, def bool) bool {
	v, ok := c.entries[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// LoggingEnabled implements the PRNG_LOGGING / prng.logging lookup:
// checked dotted key first, then the upper-snake environment spelling,
// defaulting to false (disabled).
func (c *Config) LoggingEnabled() bool {
	if v, ok := c.entries[keyPRNGLoggingDotted]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if v, ok := os.LookupEnv(keyPRNGLoggingEnv); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return false
}

// UserName resolves the "user.name" key, used to form a URI key for
// user-scoped preference storage, falling back to the OS user
// environment variables when the key is absent.
func (c *Config) UserName() string {
	if v, ok := c.entries[keyUserName]; ok && v != "" {
		return v
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return os.Getenv("USERNAME")
}

// CollectorEnabled reports whether "collector.<classname>" is present
// and not explicitly set to a falsy value. A bare key with no value, or
// one whose value doesn't parse as a bool, counts as enabled — matching
// the common properties-file idiom where presence alone toggles a
// feature.
func (c *Config) CollectorEnabled(classname string) bool {
	v, ok := c.entries[prefixCollector+classname]
	if !ok {
		return false
	}
	if v == "" {
		return true
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

// CollectorOptions returns every "config.<classname>.*" entry for
// classname, keyed by the suffix after the classname segment.
func (c *Config) CollectorOptions(classname string) map[string]string {
	return c.scoped(prefixConfig + classname + ".")
}

// SeedStorageOptions returns every "config.prng.seeds.SeedStorage.*"
// entry, keyed by its suffix (e.g. "FlushPeriod", "Backend").
func (c *Config) SeedStorageOptions() map[string]string {
	return c.scoped(prefixSeedStorage)
}

// NetworkSourceWeight returns the configured weight for
// "network.source.<classname>", defaulting to 0 (disabled) if absent or
// unparsable.
func (c *Config) NetworkSourceWeight(classname string) int {
	v, ok := c.entries[prefixNetworkSource+classname]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func (c *Config) scoped(prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range c.entries {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}
