package value

import (
	"bytes"
	"testing"
)

// mapRebinder is a minimal store that records rebinds
type mapRebinder map[string]*Value

func (m mapRebinder) Rebind(key string, v *Value) {
	if old, ok := m[key]; ok {
		old.Release()
	}
	v.Retain()
	m[key] = v
}

func TestEncodeCandidate(t *testing.T) {
	t.Run("SharedRange", func(t *testing.T) {
		a := EncodeCandidate([]byte("42"))
		b := EncodeCandidate([]byte("42"))
		if a != b {
			t.Fatalf("expected both values to alias the pooled instance")
		}
		if !a.IsShared() || a.Encoding() != EncInt {
			t.Errorf("expected shared int value, got %s/%s", a.Kind(), a.Encoding())
		}
	})

	t.Run("OutsideSharedRange", func(t *testing.T) {
		for _, in := range []string{"10000", "-1", "hello", "", "007", "+5", "-0", " 1"} {
			v := EncodeCandidate([]byte(in))
			if v.IsShared() {
				t.Errorf("%q: expected owned value", in)
			}
			if v.String() != in {
				t.Errorf("%q: content changed to %q", in, v.String())
			}
		}
	})

	t.Run("InputIsCopied", func(t *testing.T) {
		in := []byte("abc")
		v := EncodeCandidate(in)
		in[0] = 'X'
		if v.String() != "abc" {
			t.Errorf("expected value to be independent from the input, got %q", v.String())
		}
	})
}

func TestLengthOf(t *testing.T) {
	tests := []struct {
		v    *Value
		want int
	}{
		{nil, 0},
		{NewRaw([]byte("hello")), 5},
		{NewRaw(nil), 0},
		{FromInt64(0), 1},
		{FromInt64(9999), 4},
		{NewInt(-12345), 6},
		{NewInt(-9223372036854775808), 20},
		{NewInt(9223372036854775807), 19},
	}
	for _, tt := range tests {
		if got := LengthOf(tt.v); got != tt.want {
			t.Errorf("LengthOf(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestEnsureExclusive(t *testing.T) {
	t.Run("SharedIsCopied", func(t *testing.T) {
		store := mapRebinder{}
		shared := FromInt64(7)
		store.Rebind("k", shared)

		v := EnsureExclusive(store, "k", shared)
		if v == shared {
			t.Fatalf("expected a private copy")
		}
		if store["k"] != v {
			t.Errorf("expected key to be rebound to the private copy")
		}
		if v.Encoding() != EncRaw || v.String() != "7" {
			t.Errorf("unexpected copy %s/%q", v.Encoding(), v.String())
		}
		v.Append([]byte("0"))
		if shared.String() != "7" {
			t.Errorf("shared instance was modified: %q", shared.String())
		}
	})

	t.Run("AliasedIsCopied", func(t *testing.T) {
		store := mapRebinder{}
		v := NewRaw([]byte("abc"))
		store.Rebind("a", v)
		store.Rebind("b", v)

		private := EnsureExclusive(store, "a", v)
		if private == v {
			t.Fatalf("expected a private copy for an aliased value")
		}
		private.Append([]byte("d"))
		if store["b"].String() != "abc" {
			t.Errorf("aliased key observed the mutation: %q", store["b"].String())
		}
		if !v.Exclusive() {
			t.Errorf("expected the old value to be exclusive after the rebind")
		}
	})

	t.Run("ExclusiveIsKept", func(t *testing.T) {
		store := mapRebinder{}
		v := NewRaw([]byte("abc"))
		store.Rebind("k", v)
		if got := EnsureExclusive(store, "k", v); got != v {
			t.Errorf("expected exclusive raw value to be returned unchanged")
		}
	})

	t.Run("OwnedIntIsMaterialised", func(t *testing.T) {
		store := mapRebinder{}
		v := NewInt(123456)
		store.Rebind("k", v)
		got := EnsureExclusive(store, "k", v)
		if got.Encoding() != EncRaw || got.String() != "123456" {
			t.Errorf("expected raw copy of the integer, got %s/%q", got.Encoding(), got.String())
		}
	})
}

func TestMutation(t *testing.T) {
	t.Run("WriteAtZeroPads", func(t *testing.T) {
		v := NewRaw(nil)
		v.WriteAt(3, []byte("ab"))
		if !bytes.Equal(v.Bytes(), []byte{0, 0, 0, 'a', 'b'}) {
			t.Errorf("unexpected bytes %q", v.Bytes())
		}
		v.WriteAt(1, []byte("X"))
		if !bytes.Equal(v.Bytes(), []byte{0, 'X', 0, 'a', 'b'}) {
			t.Errorf("unexpected bytes %q", v.Bytes())
		}
	})

	t.Run("SharedPanics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Errorf("expected mutation of a shared value to panic")
			}
		}()
		FromInt64(1).SetInt(2)
	})

	t.Run("SetInt", func(t *testing.T) {
		v := NewInt(20000)
		v.SetInt(20001)
		if n, _ := v.Int64(); n != 20001 {
			t.Errorf("expected 20001, got %d", n)
		}
	})
}

func TestParseNumbers(t *testing.T) {
	ints := []struct {
		in string
		n  int64
		ok bool
	}{
		{"0", 0, true},
		{"-17", -17, true},
		{"-9223372036854775808", -9223372036854775808, true},
		{"9223372036854775807", 9223372036854775807, true},
		{"+5", 0, false},
		{"007", 0, false},
		{"-0", 0, false},
		{"-07", 0, false},
		{"-", 0, false},
		{"--1", 0, false},
		{"9223372036854775808", 0, false},
		{"", 0, false},
		{" 1", 0, false},
		{"1 ", 0, false},
		{"1.5", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range ints {
		n, ok := ParseInt64([]byte(tt.in))
		if ok != tt.ok || n != tt.n {
			t.Errorf("ParseInt64(%q) = %d,%v want %d,%v", tt.in, n, ok, tt.n, tt.ok)
		}
	}

	floats := []struct {
		in string
		ok bool
	}{
		{"1.5", true},
		{"-0.25", true},
		{"5", true},
		{"1e3", true},
		{"inf", true},
		{"nan", false},
		{" 1.5", false},
		{"1.5x", false},
		{"", false},
		{"1e400", false},
	}
	for _, tt := range floats {
		if _, ok := ParseFloat([]byte(tt.in)); ok != tt.ok {
			t.Errorf("ParseFloat(%q) ok=%v want %v", tt.in, ok, tt.ok)
		}
	}

	sums := []struct {
		a, b, want string
	}{
		{"10.5", "0.1", "10.6"},
		{"0.1", "0.2", "0.3"},
		{"5.0e3", "2.0e2", "5200"},
		{"3", "0", "3"},
		{"-0.25", "-0.25", "-0.5"},
		{"-1e-20", "0", "0"},
	}
	for _, tt := range sums {
		a, okA := ParseExtFloat([]byte(tt.a))
		b, okB := ParseExtFloat([]byte(tt.b))
		if !okA || !okB {
			t.Fatalf("ParseExtFloat(%q, %q) failed", tt.a, tt.b)
		}
		if got := string(FormatFloat(a.Add(a, b))); got != tt.want {
			t.Errorf("%s + %s = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}

	if x, ok := ParseExtFloat([]byte("-inf")); !ok || !x.IsInf() || x.Sign() >= 0 {
		t.Errorf("ParseExtFloat(-inf) = %v,%v", x, ok)
	}
	if _, ok := ParseExtFloat([]byte("nan")); ok {
		t.Errorf("ParseExtFloat(nan) accepted")
	}
	if x, ok := FromInt64(1234).ExtFloat(); !ok || string(FormatFloat(x)) != "1234" {
		t.Errorf("ExtFloat of an integer value = %v,%v", x, ok)
	}
}
