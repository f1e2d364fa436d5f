package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// A frame is the unit on the wire of the socket transports:
//
//	shardID (8) | requestID (8) | length (4) | payload (length)
//
// All integers are big endian. Responses carry the shardID and requestID of their request, which
// lets a client multiplex many requests over one connection.
const (
	frameHeaderSize = 20

	// maxFrameSize bounds the payload of a frame. Values are capped at 512 MiB, the rest is room
	// for the key, the command vector and the serializer overhead.
	maxFrameSize = 512<<20 + 64<<20
)

// frameHeader is the fixed size part of a frame
type frameHeader struct {
	shardID   uint64
	requestID uint64
	length    uint32
}

func (h frameHeader) encode(b []byte) {
	binary.BigEndian.PutUint64(b[:8], h.shardID)
	binary.BigEndian.PutUint64(b[8:16], h.requestID)
	binary.BigEndian.PutUint32(b[16:20], h.length)
}

func decodeFrameHeader(b []byte) frameHeader {
	return frameHeader{
		shardID:   binary.BigEndian.Uint64(b[:8]),
		requestID: binary.BigEndian.Uint64(b[8:16]),
		length:    binary.BigEndian.Uint32(b[16:20]),
	}
}

// writeFrame writes header and payload with a single vectored write
func writeFrame(conn net.Conn, shardID uint64, requestID uint64, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame payload of %d bytes exceeds the limit of %d bytes", len(data), maxFrameSize)
	}

	header := make([]byte, frameHeaderSize)
	frameHeader{shardID: shardID, requestID: requestID, length: uint32(len(data))}.encode(header)

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads one frame. The payload is read into buf if it is large enough, otherwise a new
// slice is allocated. The returned payload aliases buf in the first case.
// Errors that leave the stream at an unknown position are returned together with the header
// that was read (if any), so callers can still route the failure to the waiting request.
func readFrame(r io.Reader, buf []byte) (frameHeader, []byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return frameHeader{}, nil, err
	}
	h := decodeFrameHeader(header[:])

	if h.length > maxFrameSize {
		return h, nil, fmt.Errorf("frame payload of %d bytes exceeds the limit of %d bytes", h.length, maxFrameSize)
	}
	if h.length == 0 {
		return h, []byte{}, nil
	}

	if len(buf) < int(h.length) {
		buf = make([]byte, h.length)
	}
	if _, err := io.ReadFull(r, buf[:h.length]); err != nil {
		return h, nil, err
	}
	return h, buf[:h.length], nil
}

// bufferedConn is implemented by *net.TCPConn and *net.UnixConn
type bufferedConn interface {
	SetReadBuffer(bytes int) error
	SetWriteBuffer(bytes int) error
}

// ApplySocketBuffers sets the kernel buffer sizes of conn. Sizes <= 0 keep the system default,
// connections without configurable buffers are left untouched.
func ApplySocketBuffers(conn net.Conn, socket common.SocketConf) error {
	bc, ok := conn.(bufferedConn)
	if !ok {
		return nil
	}
	if socket.WriteBufferSize > 0 {
		if err := bc.SetWriteBuffer(socket.WriteBufferSize); err != nil {
			return fmt.Errorf("set write buffer: %w", err)
		}
	}
	if socket.ReadBufferSize > 0 {
		if err := bc.SetReadBuffer(socket.ReadBufferSize); err != nil {
			return fmt.Errorf("set read buffer: %w", err)
		}
	}
	return nil
}
