// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package fortuna

// counter128 is Fortuna's 128-bit output-engine counter C, stored and
// incremented as a little-endian big integer, matching maruel/fortuna's
// counter.go layout ( invariant: "C must increment
// monotonically mod 2^128 under little-endian byte arithmetic with
// carry").
type counter128 [16]byte

// incr adds 1 to c, wrapping mod 2^128 on overflow.
func (c *counter128) incr() {
	for i := range c {
		c[i]++
		if c[i] != 0 {
			return
		}
	}
}
