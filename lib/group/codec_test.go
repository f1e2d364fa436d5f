package group

import (
	"errors"
	"reflect"
	"testing"
)

func TestDeriveID(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"single", []string{"a"}, "1:a"},
		{"two", []string{"foo", "hello"}, "3:foo5:hello"},
		{"empty key", []string{"", "x"}, "0:1:x"},
		{"delimiter inside key", []string{"a:b", "c"}, "3:a:b1:c"},
		{"empty list", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveID(tt.keys); got != tt.want {
				t.Errorf("DeriveID(%q) = %q, want %q", tt.keys, got, tt.want)
			}
		})
	}
}

func TestDeriveIDOrderSensitive(t *testing.T) {
	if DeriveID([]string{"a", "b"}) == DeriveID([]string{"b", "a"}) {
		t.Error("different key order must give different ids")
	}
	if DeriveID([]string{"ab", "c"}) == DeriveID([]string{"a", "bc"}) {
		t.Error("different splits of the same bytes must give different ids")
	}
	if DeriveID([]string{"x", "y"}) != DeriveID([]string{"x", "y"}) {
		t.Error("same key list must give the same id")
	}
}

func TestResolveMembersRoundTrip(t *testing.T) {
	lists := [][]string{
		{"a"},
		{"foo", "hello"},
		{"", ""},
		{"1:a", "2:bb", "::"},
		{string([]byte{0, 255, ':'}), "k"},
	}

	for _, keys := range lists {
		got, err := ResolveMembers(DeriveID(keys))
		if err != nil {
			t.Errorf("ResolveMembers(DeriveID(%q)) failed: %v", keys, err)
			continue
		}
		if !reflect.DeepEqual(got, keys) {
			t.Errorf("round trip of %q gave %q", keys, got)
		}
	}
}

func TestResolveMembersInvalid(t *testing.T) {
	for _, id := range []string{"", "a", "3:ab", ":a", "x:a", "-1:a", "01:a", "1:a2", "+3:foo", "3:foo+1:a", " 1:a"} {
		if _, err := ResolveMembers(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ResolveMembers(%q) error = %v, want ErrInvalidID", id, err)
		}
	}
}
