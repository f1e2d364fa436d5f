package group

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ValentinKolb/sKV/lib/value"
)

// --------------------------------------------------------------------------
// Snapshot Format
// --------------------------------------------------------------------------

const (
	magicNum        = "SKVGRPS\x00"
	snapshotVersion = 1
)

// Save writes the engine state to w:
//
//  1. Magic number "SKVGRPS\x00" and version (u8)
//  2. Recency clock (u64)
//  3. Groups in recency order: id, last access (u64), credited (u8)
//  4. Reference counts: key, count (i64)
//  5. Cache entries: key, encoding (u8), payload (i64 or length prefixed bytes)
//
// Strings and byte payloads are written as u32 length + bytes, numbers little endian.
func (e *Engine) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := bw.WriteByte(snapshotVersion); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, e.registry.clock); err != nil {
		return err
	}

	// groups
	if err := binary.Write(bw, binary.LittleEndian, uint64(e.registry.Len())); err != nil {
		return err
	}
	var err error
	e.registry.byRecency.Scan(func(item recencyItem) bool {
		if err = writeString(bw, item.id); err != nil {
			return false
		}
		if err = binary.Write(bw, binary.LittleEndian, item.at); err != nil {
			return false
		}
		credited := byte(0)
		if e.registry.groups[item.id].credited {
			credited = 1
		}
		err = bw.WriteByte(credited)
		return err == nil
	})
	if err != nil {
		return err
	}

	// reference counts
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(e.refs.counts))); err != nil {
		return err
	}
	for k, n := range e.refs.counts {
		if err := writeString(bw, k); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, n); err != nil {
			return err
		}
	}

	// cache entries
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(e.cache.entries))); err != nil {
		return err
	}
	for k, v := range e.cache.entries {
		if err := writeString(bw, k); err != nil {
			return err
		}
		if err := bw.WriteByte(byte(v.Encoding())); err != nil {
			return err
		}
		if v.Encoding() == value.EncInt {
			n, _ := v.Int64()
			if err := binary.Write(bw, binary.LittleEndian, n); err != nil {
				return err
			}
		} else if err := writeString(bw, v.String()); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces the engine state with a snapshot written by Save.
// On error the engine is left empty.
func (e *Engine) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	// drop the current state, releasing cached values
	for k := range e.cache.entries {
		e.cache.Purge(k)
	}
	*e = *NewEngine()

	magic := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magic); err != nil {
		return err
	}
	if string(magic) != magicNum {
		return fmt.Errorf("invalid group snapshot: magic number mismatch")
	}
	version, err := br.ReadByte()
	if err != nil {
		return err
	}
	if version != snapshotVersion {
		return fmt.Errorf("unsupported group snapshot version: %d (expected %d)", version, snapshotVersion)
	}

	var clock uint64
	if err := binary.Read(br, binary.LittleEndian, &clock); err != nil {
		return err
	}

	fail := func(err error) error {
		*e = *NewEngine()
		return err
	}

	// groups
	var n uint64
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return fail(err)
	}
	for i := uint64(0); i < n; i++ {
		id, err := readString(br)
		if err != nil {
			return fail(err)
		}
		var at uint64
		if err := binary.Read(br, binary.LittleEndian, &at); err != nil {
			return fail(err)
		}
		credited, err := br.ReadByte()
		if err != nil {
			return fail(err)
		}
		if _, err := ResolveMembers(id); err != nil {
			return fail(fmt.Errorf("invalid group snapshot: %w: %q", err, id))
		}
		e.registry.restore(id, at, credited == 1)
	}
	if clock > e.registry.clock {
		e.registry.clock = clock
	}

	// reference counts
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return fail(err)
	}
	for i := uint64(0); i < n; i++ {
		k, err := readString(br)
		if err != nil {
			return fail(err)
		}
		var count int64
		if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
			return fail(err)
		}
		if count > 0 {
			e.refs.counts[k] = count
		}
	}

	// cache entries
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return fail(err)
	}
	for i := uint64(0); i < n; i++ {
		k, err := readString(br)
		if err != nil {
			return fail(err)
		}
		enc, err := br.ReadByte()
		if err != nil {
			return fail(err)
		}
		var v *value.Value
		switch value.Encoding(enc) {
		case value.EncInt:
			var num int64
			if err := binary.Read(br, binary.LittleEndian, &num); err != nil {
				return fail(err)
			}
			v = value.FromInt64(num)
		case value.EncRaw:
			s, err := readString(br)
			if err != nil {
				return fail(err)
			}
			v = value.EncodeCandidate([]byte(s))
		default:
			return fail(fmt.Errorf("invalid group snapshot: unknown encoding %d", enc))
		}
		e.cache.Put(k, v)
	}

	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
