/*
Package fingerprint provides the fixed-length bitset that records which
properties of a cell have been explicitly assigned.

# Fingerprint

A Fingerprint holds N bits. The first 32 live in an inline word and the rest in
a slice of 32-bit words, so small cells never allocate:

	fp := fingerprint.New(4)
	fp.Touch(1)
	fp.Get(1) // true

Get, Touch and Wipe panic when the index is outside [0, Len). An out-of-range
index is a bug in the caller, usually generated accessor code.

# Equivalence

IsEquivalent is directional. a.IsEquivalent(b) holds when a is no longer than b
and every bit set in a is also set in b. A sparsely touched template is
therefore equivalent to any fully populated instance that agrees on it, but not
the other way around.

# Capo

A Capo is a read-only window onto a Fingerprint starting at an offset. It is how
a subclass looks at its own slice of the bits. Reads outside the window return
false instead of panicking.
*/
package fingerprint
