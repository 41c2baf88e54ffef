// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package builder parses algorithm-name strings — e.g.
// "nist/sha256/source=FORTUNA&lazy=10000" — into a constructed
// drbg.DRBG, wiring up whichever SeedSource the string requests.
package builder

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sixafter/csprng/drbg"
)

// Strength is the nominal security strength, in bits, of the algorithm
// a parsed string selects — SHA-1 variants cap at 128, every other
// variant at 256.
type Strength int

const (
	Strength128 Strength = 128
	Strength256 Strength = 256
)

// Sources is the caller-supplied registry of named seed sources a
// "source=" parameter may select among. Builder never constructs these
// itself — doing so would require importing fortuna, sysprng and the
// instant pool all at once — so callers wire the registry once at
// startup and pass it to every Parse call.
type Sources map[string]drbg.SeedSource

// Result is the outcome of parsing one algorithm string.
type Result struct {
	DRBG      drbg.DRBG
	Strength  Strength
	Cacheable bool
}

var (
	ErrUnknownAlgorithm = errors.New("builder: unrecognized algorithm name")
	ErrUnknownSource    = errors.New("builder: unrecognized source")
	ErrInvalidParameter = errors.New("builder: invalid parameter value")
)

// Parse parses an algorithm-name string of the form shown in the package
// comment.
// defaultResistance is used when no "lazy"/"laziness" parameter is
// present.
func Parse(spec string, sources Sources, defaultResistance int) (Result, error) {
	spec = strings.TrimPrefix(spec, "nist/")
	spec = strings.TrimPrefix(spec, "NIST/")

	parts := strings.Split(spec, "/")
	algo := parts[0]
	params, err := parseParams(parts[1:])
	if err != nil {
		return Result{}, err
	}

	family, strength, err := classify(algo)
	if err != nil {
		return Result{}, err
	}

	source, _, err := resolveSource(params, sources)
	if err != nil {
		return Result{}, err
	}

	resistance := defaultResistance
	if v, ok := firstMatch(params, "lazy", "laziness"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Result{}, fmt.Errorf("%w: lazy/laziness must be a non-negative integer, got %q", ErrInvalidParameter, v)
		}
		resistance = n
	}

	material, err := buildInitialMaterial(params)
	if err != nil {
		return Result{}, err
	}
	_, hasEntropy := firstMatch(params, "entropy")
	_, hasNonce := firstMatch(params, "nonce")
	cacheable := !hasEntropy && !hasNonce

	d := family.construct(source, resistance, material)
	return Result{DRBG: d, Strength: strength, Cacheable: cacheable}, nil
}

type algoFamily struct {
	construct func(source drbg.SeedSource, resistance int, material *drbg.InitialMaterial) drbg.DRBG
}

func classify(algo string) (algoFamily, Strength, error) {
	lower := strings.ToLower(algo)

	switch {
	case lower == "aes" || lower == "aes256":
		return algoFamily{construct: func(s drbg.SeedSource, r int, m *drbg.InitialMaterial) drbg.DRBG {
			d := drbg.NewCtrDRBG(s, r)
			d.SetPendingMaterial(m)
			return d
		}}, Strength256, nil

	case strings.HasPrefix(lower, "hmacsha"):
		algHash, strength, err := hashVariant(strings.TrimPrefix(lower, "hmacsha"))
		if err != nil {
			return algoFamily{}, 0, err
		}
		return algoFamily{construct: func(s drbg.SeedSource, r int, m *drbg.InitialMaterial) drbg.DRBG {
			d := drbg.NewHmacDRBG(algHash, s, r)
			d.SetPendingMaterial(m)
			return d
		}}, strength, nil

	case strings.HasPrefix(lower, "sha"):
		algHash, strength, err := hashVariant(strings.TrimPrefix(lower, "sha"))
		if err != nil {
			return algoFamily{}, 0, err
		}
		return algoFamily{construct: func(s drbg.SeedSource, r int, m *drbg.InitialMaterial) drbg.DRBG {
			d := drbg.NewHashDRBG(algHash, s, r)
			d.SetPendingMaterial(m)
			return d
		}}, strength, nil
	}

	return algoFamily{}, 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
}

// hashVariant parses the optional "-" and trailing digit group
// (1/256/512) selecting the hash width.
func hashVariant(suffix string) (drbg.HashAlgorithm, Strength, error) {
	suffix = strings.TrimPrefix(suffix, "-")
	switch suffix {
	case "1":
		return drbg.HashSHA1, Strength128, nil
	case "256", "":
		return drbg.HashSHA256, Strength256, nil
	case "512":
		return drbg.HashSHA512, Strength256, nil
	}
	return 0, 0, fmt.Errorf("%w: unrecognized hash width %q", ErrUnknownAlgorithm, suffix)
}

type param struct {
	key   string
	value string
}

func parseParams(raw []string) ([]param, error) {
	var out []param
	for _, segment := range raw {
		if segment == "" {
			continue
		}
		for _, kv := range strings.Split(segment, "&") {
			if kv == "" {
				continue
			}
			eq := strings.IndexByte(kv, '=')
			if eq < 0 {
				return nil, fmt.Errorf("%w: parameter %q missing '='", ErrInvalidParameter, kv)
			}
			out = append(out, param{key: kv[:eq], value: kv[eq+1:]})
		}
	}
	return out, nil
}

// firstMatch returns the value of the first parameter whose key
// case-insensitively matches a prefix of any of names.
func firstMatch(params []param, names ...string) (string, bool) {
	for _, p := range params {
		for _, name := range names {
			if len(p.key) > 0 && len(p.key) <= len(name) && strings.EqualFold(p.key, name[:len(p.key)]) {
				return p.value, true
			}
		}
	}
	return "", false
}

func resolveSource(params []param, sources Sources) (drbg.SeedSource, string, error) {
	name, ok := firstMatch(params, "source")
	if !ok {
		name = "FORTUNA"
	}
	upper := strings.ToUpper(name)

	if upper == "ZERO" {
		return drbg.ZeroSource{}, "", nil
	}
	src, ok := sources[upper]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return src, upper, nil
}

// decodeBase64URLParam decodes a base64url parameter value, accepting
// both the padded alphabet ("AA==") and the unpadded one ("AA") since
// algorithm strings may come from either a strict encoder or one that
// trims padding.
func decodeBase64URLParam(v string) ([]byte, error) {
	if strings.ContainsRune(v, '=') {
		return base64.URLEncoding.DecodeString(v)
	}
	return base64.RawURLEncoding.DecodeString(v)
}

func buildInitialMaterial(params []param) (*drbg.InitialMaterial, error) {
	m := &drbg.InitialMaterial{}
	if v, ok := firstMatch(params, "entropy"); ok {
		b, err := decodeBase64URLParam(v)
		if err != nil {
			return nil, fmt.Errorf("%w: entropy is not valid base64url: %v", ErrInvalidParameter, err)
		}
		m.Entropy = b
	}
	if v, ok := firstMatch(params, "nonce"); ok {
		b, err := decodeBase64URLParam(v)
		if err != nil {
			return nil, fmt.Errorf("%w: nonce is not valid base64url: %v", ErrInvalidParameter, err)
		}
		m.Nonce = b
	}
	if v, ok := firstMatch(params, "personalization"); ok {
		b, err := decodeBase64URLParam(v)
		if err != nil {
			return nil, fmt.Errorf("%w: personalization is not valid base64url: %v", ErrInvalidParameter, err)
		}
		m.Personalization = b
	}
	return m, nil
}
