package group

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidID is returned by ResolveMembers for strings that DeriveID can not produce
var ErrInvalidID = errors.New("invalid group id")

// DeriveID maps an ordered key list to its group id.
//
// Every key is written as its byte length in decimal, a colon and the key itself:
//
//	DeriveID([]string{"foo", "hello"}) == "3:foo5:hello"
//
// The length prefix makes the encoding unambiguous for arbitrary key bytes (including ':'),
// so distinct ordered lists never share an id. An empty list yields the empty id.
func DeriveID(keys []string) string {
	size := 0
	for _, k := range keys {
		size += len(k) + 2
	}

	var b strings.Builder
	b.Grow(size)
	for _, k := range keys {
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}

// ResolveMembers is the exact inverse of DeriveID.
func ResolveMembers(id string) ([]string, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	var keys []string
	for pos := 0; pos < len(id); {
		colon := strings.IndexByte(id[pos:], ':')
		if colon <= 0 {
			return nil, ErrInvalidID
		}
		prefix := id[pos : pos+colon]

		// DeriveID writes plain digits, without sign or leading zeros
		if !isDigits(prefix) || (len(prefix) > 1 && prefix[0] == '0') {
			return nil, ErrInvalidID
		}
		n, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, ErrInvalidID
		}

		start := pos + colon + 1
		if n > len(id)-start {
			return nil, ErrInvalidID
		}
		keys = append(keys, id[start:start+n])
		pos = start + n
	}
	return keys, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
