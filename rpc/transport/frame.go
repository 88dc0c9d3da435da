package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ValentinKolb/sKV/lib/sanitize"
)

const (
	// headerSize is the size of the length prefix of a frame
	headerSize = 4
	// DefaultMaxFrameSize is the payload ceiling used when none is configured
	DefaultMaxFrameSize uint32 = 1 << 20
)

var (
	// ErrFrameTooLarge is returned when the declared length exceeds the ceiling
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrNonASCII is returned when a payload contains non ASCII bytes
	ErrNonASCII = errors.New("payload is not ASCII")
)

// WriteFrame writes text as one frame with the format:
// - 4 bytes: payload length (uint32, big endian)
// - N bytes: ASCII payload
// Surrounding whitespace is trimmed before encoding. The frame is handed to w
// in a single Write call, so a TLS connection sends it as one record.
func WriteFrame(w io.Writer, text string) error {
	payload := strings.TrimFunc(text, sanitize.IsSpace)
	if !IsASCII(payload) {
		return ErrNonASCII
	}
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[headerSize:], payload)

	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame and returns its whitespace-trimmed payload.
// Payloads larger than maxSize are rejected before any allocation
// (maxSize 0 means DefaultMaxFrameSize).
//
// If the stream ends before the frame is complete an error is returned:
// io.EOF if not a single header byte was read, io.ErrUnexpectedEOF otherwise.
// Callers treat any error, as well as an empty payload in command position,
// as the end of the connection.
func ReadFrame(r io.Reader, maxSize uint32) (string, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxFrameSize
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > maxSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, length, maxSize)
	}
	if length == 0 {
		return "", nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}

	if !IsASCII(string(payload)) {
		return "", ErrNonASCII
	}
	return strings.TrimFunc(string(payload), sanitize.IsSpace), nil
}

// IsASCII reports whether s only contains 7 bit characters
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
