package value

import (
	"bytes"
	"math"
	"math/big"
	"strconv"
)

// ParseInt64 parses b as a base 10 signed 64-bit integer. Only a leading "-" is accepted as
// sign. A "+" prefix, leading zeros, "-0", whitespace and trailing characters are rejected.
func ParseInt64(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > maxIntDigits {
		return 0, false
	}
	digits := b
	if b[0] == '-' {
		digits = b[1:]
	}
	if len(digits) == 0 || digits[0] < '0' || digits[0] > '9' {
		return 0, false
	}
	if digits[0] == '0' && len(b) > 1 {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseCanonical parses b only if it is the exact decimal form of an int64, so the integer
// encoding reproduces the original bytes. ParseInt64 accepts canonical forms only.
func parseCanonical(b []byte) (int64, bool) {
	return ParseInt64(b)
}

// ParseFloat parses b as a float. Leading whitespace, trailing characters, NaN and values out of
// the float64 range are rejected.
func ParseFloat(b []byte) (float64, bool) {
	if len(b) == 0 || isSpace(b[0]) {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FloatPrec is the mantissa size in bits of the float arithmetic of INCRBYFLOAT. It matches the
// x87 extended precision long double.
const FloatPrec = 64

// floatDecimals is the number of fraction digits printed before trailing zeros are removed
const floatDecimals = 17

// ParseExtFloat parses b with the syntax of ParseFloat into a FloatPrec float. Finite numbers
// are parsed from their text, so "0.1" is not first rounded to float64.
func ParseExtFloat(b []byte) (*big.Float, bool) {
	f, ok := ParseFloat(b)
	if !ok {
		return nil, false
	}
	x := new(big.Float).SetPrec(FloatPrec)
	if math.IsInf(f, 0) {
		return x.SetInf(f < 0), true
	}
	if _, ok := x.SetString(string(b)); !ok {
		x.SetFloat64(f)
	}
	return x, true
}

// FormatFloat returns the canonical textual form of a finite x: floatDecimals fraction digits
// with trailing zeros and a trailing dot removed, "-0" is written as "0".
func FormatFloat(x *big.Float) []byte {
	out := x.Append(nil, 'f', floatDecimals)
	if bytes.IndexByte(out, '.') >= 0 {
		out = bytes.TrimRight(out, "0")
		out = bytes.TrimSuffix(out, []byte("."))
	}
	if string(out) == "-0" {
		out = out[1:]
	}
	return out
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
