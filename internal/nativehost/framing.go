package nativehost

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxMessageBytes matches the browser's limit for host-bound messages.
const DefaultMaxMessageBytes = 1 << 20

var ErrMessageTooLarge = errors.New("native message exceeds size limit")

// ReadMessage reads one length-prefixed message: a 4-byte length in native
// byte order followed by that many bytes of JSON. A clean end of stream
// before the prefix is io.EOF.
func ReadMessage(r io.Reader, max int) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.NativeEndian.Uint32(prefix[:])
	if max <= 0 {
		max = DefaultMaxMessageBytes
	}
	if uint64(n) > uint64(max) {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrMessageTooLarge, n, max)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes payload with its native-endian length prefix and
// flushes w when it is buffered.
func WriteMessage(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return ErrMessageTooLarge
	}
	var prefix [4]byte
	binary.NativeEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if bw, ok := w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}
