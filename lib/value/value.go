package value

import (
	"math/big"
	"strconv"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// SharedIntegers is the size of the shared integer pool, integers in [0, SharedIntegers)
	// are never allocated twice.
	SharedIntegers = 10000

	// MaxLen is the largest byte length a string value may reach (512 MiB).
	MaxLen = 512 * 1024 * 1024

	// maxIntDigits is the longest decimal representation of an int64 ("-9223372036854775808").
	maxIntDigits = 20
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Kind tells whether a value is owned by a single association or part of the shared pool.
type Kind uint8

const (
	KindOwned  Kind = iota // Private value, may be mutated by its only owner
	KindShared             // Member of the shared integer pool, immutable
)

func (k Kind) String() string {
	switch k {
	case KindOwned:
		return "owned"
	case KindShared:
		return "shared"
	default:
		return "unknown"
	}
}

// Encoding is the in-memory representation of a value.
type Encoding uint8

const (
	EncRaw Encoding = iota // Byte sequence
	EncInt                 // Signed 64-bit integer
)

func (e Encoding) String() string {
	switch e {
	case EncRaw:
		return "raw"
	case EncInt:
		return "int"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Value Type
// --------------------------------------------------------------------------

// Value is a string value, see the package documentation for the ownership rules.
type Value struct {
	kind   Kind
	enc    Encoding
	raw    []byte // used if enc == EncRaw
	num    int64  // used if enc == EncInt
	owners atomic.Int32
}

// sharedPool holds the immutable small integer instances
var sharedPool [SharedIntegers]*Value

func init() {
	for i := range sharedPool {
		sharedPool[i] = &Value{kind: KindShared, enc: EncInt, num: int64(i)}
	}
}

// Shared returns the pooled instance for n and true, or nil and false if n is outside the pool.
func Shared(n int64) (*Value, bool) {
	if n < 0 || n >= SharedIntegers {
		return nil, false
	}
	return sharedPool[n], true
}

// NewRaw creates an owned raw value holding a copy of b.
func NewRaw(b []byte) *Value {
	buf := make([]byte, len(b))
	copy(buf, b)
	return &Value{kind: KindOwned, enc: EncRaw, raw: buf}
}

// NewInt creates an owned integer encoded value, it never uses the shared pool.
func NewInt(n int64) *Value {
	return &Value{kind: KindOwned, enc: EncInt, num: n}
}

// FromInt64 returns the shared instance for n if it exists, otherwise a new owned integer value.
func FromInt64(n int64) *Value {
	if v, ok := Shared(n); ok {
		return v
	}
	return NewInt(n)
}

// EncodeCandidate converts user supplied bytes into a value. Bytes that are the canonical decimal
// form of an integer inside the shared range resolve to the pooled instance without allocating,
// everything else becomes an owned raw value. It never fails.
func EncodeCandidate(b []byte) *Value {
	if n, ok := parseCanonical(b); ok {
		if v, shared := Shared(n); shared {
			return v
		}
	}
	return NewRaw(b)
}

// LengthOf returns the logical string length of v, the number of decimal digits (and sign) for
// integer encoded values and the byte count otherwise. A nil value has length 0.
func LengthOf(v *Value) int {
	if v == nil {
		return 0
	}
	return v.Len()
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

func (v *Value) Kind() Kind { return v.kind }

func (v *Value) Encoding() Encoding { return v.enc }

// IsShared reports whether v is a member of the shared pool.
func (v *Value) IsShared() bool { return v.kind == KindShared }

// Len returns the logical string length of the value.
func (v *Value) Len() int {
	if v.enc == EncInt {
		return intLen(v.num)
	}
	return len(v.raw)
}

// Bytes returns the textual form of the value as a new slice that the caller may keep.
func (v *Value) Bytes() []byte {
	if v.enc == EncInt {
		return strconv.AppendInt(nil, v.num, 10)
	}
	out := make([]byte, len(v.raw))
	copy(out, v.raw)
	return out
}

// String returns the textual form of the value.
func (v *Value) String() string {
	if v.enc == EncInt {
		return strconv.FormatInt(v.num, 10)
	}
	return string(v.raw)
}

// Int64 interprets the value as a signed 64-bit integer.
func (v *Value) Int64() (int64, bool) {
	if v.enc == EncInt {
		return v.num, true
	}
	return ParseInt64(v.raw)
}

// ExtFloat interprets the value as a FloatPrec float (see ParseExtFloat).
func (v *Value) ExtFloat() (*big.Float, bool) {
	if v.enc == EncInt {
		return new(big.Float).SetPrec(FloatPrec).SetInt64(v.num), true
	}
	return ParseExtFloat(v.raw)
}

// Equal reports whether both values have the same textual form.
func (v *Value) Equal(other *Value) bool {
	if v == other {
		return true
	}
	if v == nil || other == nil {
		return false
	}
	if v.enc == EncInt && other.enc == EncInt {
		return v.num == other.num
	}
	return v.String() == other.String()
}

// --------------------------------------------------------------------------
// Ownership
// --------------------------------------------------------------------------

// Retain registers one more association holding v. Shared values are not counted.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (v *Value) Retain() {
	if v.kind == KindOwned {
		v.owners.Add(1)
	}
}

// Release drops one association holding v.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (v *Value) Release() {
	if v.kind == KindOwned {
		v.owners.Add(-1)
	}
}

// Owners returns the number of associations holding v (0 for shared values).
func (v *Value) Owners() int {
	if v.kind == KindShared {
		return 0
	}
	return int(v.owners.Load())
}

// Exclusive reports whether v is owned and held by at most one association.
func (v *Value) Exclusive() bool {
	return v.kind == KindOwned && v.owners.Load() <= 1
}

// Dup returns an owned raw copy with the same textual content and no owners.
func (v *Value) Dup() *Value {
	if v.enc == EncInt {
		return &Value{kind: KindOwned, enc: EncRaw, raw: strconv.AppendInt(nil, v.num, 10)}
	}
	return NewRaw(v.raw)
}

// Rebinder is the part of a store that can replace the value associated with a key
// without touching any other property of the key (such as its expiry).
type Rebinder interface {
	Rebind(key string, v *Value)
}

// EnsureExclusive returns a value for key that may be mutated in place as a raw byte sequence.
// If v is shared, held by more than one association or integer encoded, a private raw copy is
// created and bound to key in s. Otherwise v is returned unchanged.
func EnsureExclusive(s Rebinder, key string, v *Value) *Value {
	if v.Exclusive() && v.enc == EncRaw {
		return v
	}
	private := v.Dup()
	s.Rebind(key, private)
	return private
}

// --------------------------------------------------------------------------
// In-place mutation (exclusive values only)
// --------------------------------------------------------------------------

// mustBeExclusive panics if v may be observed through another association.
func (v *Value) mustBeExclusive(op string) {
	if !v.Exclusive() {
		panic("value: " + op + " on a value that is not exclusively owned")
	}
}

// Append concatenates fragment to the raw value and returns the new length.
func (v *Value) Append(fragment []byte) int {
	v.mustBeExclusive("append")
	if v.enc != EncRaw {
		panic("value: append on an integer encoded value")
	}
	v.raw = append(v.raw, fragment...)
	return len(v.raw)
}

// WriteAt overwrites the bytes starting at offset with fragment, zero-extending the value if it
// is too short, and returns the new length.
func (v *Value) WriteAt(offset int, fragment []byte) int {
	v.mustBeExclusive("write")
	if v.enc != EncRaw {
		panic("value: write on an integer encoded value")
	}
	if end := offset + len(fragment); end > len(v.raw) {
		if end <= cap(v.raw) {
			grown := v.raw[:end]
			clear(grown[len(v.raw):])
			v.raw = grown
		} else {
			grown := make([]byte, end)
			copy(grown, v.raw)
			v.raw = grown
		}
	}
	copy(v.raw[offset:], fragment)
	return len(v.raw)
}

// SetInt replaces the integer held by an owned integer encoded value.
func (v *Value) SetInt(n int64) {
	v.mustBeExclusive("set")
	if v.enc != EncInt {
		panic("value: set integer on a raw encoded value")
	}
	v.num = n
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// intLen returns the number of characters of the decimal form of n
func intLen(n int64) int {
	l := 1
	if n < 0 {
		l++
		if n == -1<<63 {
			return maxIntDigits
		}
		n = -n
	}
	for n >= 10 {
		n /= 10
		l++
	}
	return l
}
