package copyproto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Control marks whether a frame is the last one in a logical message
// (Done) or whether more frames follow (More), e.g. the multi-frame
// filename listings OPENDIR streams back.
type Control byte

const (
	More Control = 'M'
	Done Control = 'D'
)

// MaxFrameSize bounds a single frame's payload, so a corrupt or
// adversarial length prefix cannot force an unbounded allocation.
const MaxFrameSize = 64 * 1024 * 1024

// OpenDirSentinel is the literal payload of the frame that terminates
// an OPENDIR listing.
const OpenDirSentinel = "---cfXen/gine/cfXen/gine---"

// WriteFrame writes a length-prefixed frame: 4-byte big-endian payload
// length, 1-byte control marker, then payload.
func WriteFrame(w io.Writer, ctl Control, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("copyproto: frame payload %d exceeds max %d", len(payload), MaxFrameSize)
	}

	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	header[4] = byte(ctl)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("copyproto: write frame header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("copyproto: write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame.
func ReadFrame(r io.Reader) (Control, []byte, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, fmt.Errorf("copyproto: read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[0:4])
	if length > MaxFrameSize {
		return 0, nil, fmt.Errorf("copyproto: frame announces %d bytes, exceeds max %d", length, MaxFrameSize)
	}
	ctl := Control(header[4])
	if ctl != More && ctl != Done {
		return 0, nil, fmt.Errorf("copyproto: unrecognised frame control byte %q", header[4])
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, fmt.Errorf("copyproto: read frame payload: %w", err)
		}
	}
	return ctl, payload, nil
}

// ErrShortWrite is returned by callers that detect a partial transfer
// after the fact (e.g. a size mismatch at post-transfer verification).
var ErrShortWrite = errors.New("copyproto: transferred size does not match announced size")
