package lstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// --------------------------------------------------------------------------
// Append-Only Journal
// --------------------------------------------------------------------------

// journal appends propagated commands as RESP arrays to a file:
//
//	*<argc>\r\n$<len>\r\n<arg>\r\n ...
//
// Thread-safety: append and size are thread-safe, replay must run before the first append.
type journal struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
	sync bool
	size int64
}

// journalPath returns the journal file of a shard
func journalPath(dir string, shardID uint64) string {
	return filepath.Join(dir, fmt.Sprintf("shard-%d.aof", shardID))
}

// openJournal opens (or creates) the journal file at path
func openJournal(path string, sync bool) (*journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &journal{path: path, f: f, w: bufio.NewWriter(f), sync: sync}, nil
}

// replay calls fn for every complete command in the journal. A torn command at the end of the
// file (crash during a write) is cut off, anything else that does not parse is an error.
// Afterwards the file is positioned for appending.
func (j *journal) replay(fn func(argv [][]byte)) (int, error) {
	if _, err := j.f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	r := bufio.NewReader(j.f)
	var offset int64
	count := 0
	for {
		argv, n, err := readCommand(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			log.Warningf("journal %s: dropping torn command at offset %d", j.path, offset)
			if err := j.f.Truncate(offset); err != nil {
				return count, err
			}
			break
		}
		if err != nil {
			return count, fmt.Errorf("journal %s: offset %d: %w", j.path, offset, err)
		}
		fn(argv)
		offset += n
		count++
	}

	if _, err := j.f.Seek(offset, io.SeekStart); err != nil {
		return count, err
	}
	j.size = offset
	return count, nil
}

// append writes argv to the journal and flushes it to the file (and to disk if sync is set)
func (j *journal) append(argv [][]byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	buf := make([]byte, 0, 64)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(argv)), 10)
	buf = append(buf, '\r', '\n')
	for _, a := range argv {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(a)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, a...)
		buf = append(buf, '\r', '\n')
	}

	if _, err := j.w.Write(buf); err != nil {
		return err
	}
	if err := j.w.Flush(); err != nil {
		return err
	}
	j.size += int64(len(buf))
	if j.sync {
		return j.f.Sync()
	}
	return nil
}

// bytes returns the size of the journal file
func (j *journal) bytes() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

func (j *journal) close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		_ = j.f.Close()
		return err
	}
	return j.f.Close()
}

// readCommand parses one RESP array of bulk strings and returns it with its encoded size.
// io.EOF means the reader ended cleanly before a command, io.ErrUnexpectedEOF that it ended
// inside one.
func readCommand(r *bufio.Reader) ([][]byte, int64, error) {
	var size int64

	argc, n, err := readHeader(r, '*')
	size += n
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return nil, 0, io.EOF
		}
		return nil, size, unexpectedEOF(err)
	}
	if argc <= 0 {
		return nil, size, fmt.Errorf("invalid argument count %d", argc)
	}

	argv := make([][]byte, argc)
	for i := range argv {
		l, n, err := readHeader(r, '$')
		size += n
		if err != nil {
			return nil, size, unexpectedEOF(err)
		}
		if l < 0 {
			return nil, size, fmt.Errorf("invalid argument length %d", l)
		}
		arg := make([]byte, l+2)
		if _, err := io.ReadFull(r, arg); err != nil {
			return nil, size, unexpectedEOF(err)
		}
		if arg[l] != '\r' || arg[l+1] != '\n' {
			return nil, size, fmt.Errorf("argument %d is not terminated by CRLF", i)
		}
		size += int64(l + 2)
		argv[i] = arg[:l]
	}
	return argv, size, nil
}

// readHeader reads a line "<prefix><int>\r\n"
func readHeader(r *bufio.Reader, prefix byte) (int, int64, error) {
	line, err := r.ReadBytes('\n')
	n := int64(len(line))
	if err != nil {
		return 0, n, err
	}
	if len(line) < 3 || line[0] != prefix || line[len(line)-2] != '\r' {
		return 0, n, fmt.Errorf("invalid header %q, expected '%c'", line, prefix)
	}
	v, err := strconv.Atoi(string(line[1 : len(line)-2]))
	if err != nil {
		return 0, n, fmt.Errorf("invalid header %q: %w", line, err)
	}
	return v, n, nil
}

// unexpectedEOF turns io.EOF inside a command into io.ErrUnexpectedEOF
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
