package lock

import "encoding/binary"

// recordSize is the fixed on-disk width of a LockRecord: 4 bytes pid,
// 4 bytes padding, 8 bytes acquired-at, 8 bytes padding.
const recordSize = 24

// LockRecord is the persisted payload of a lock or completion entry:
// the pid that holds (or held) it, and the Unix-second timestamp it
// was acquired (or completed) at.
type LockRecord struct {
	Pid        uint32
	AcquiredAt int64
}

// marshal serialises r into the fixed 24-byte wire layout, zeroing the
// buffer before writing any field so padding bytes never carry over
// stale content from a previous record.
func (r LockRecord) marshal() []byte {
	buf := make([]byte, recordSize)
	for i := range buf {
		buf[i] = 0
	}

	binary.BigEndian.PutUint32(buf[0:4], r.Pid)
	// buf[4:8] left as zeroed padding
	binary.BigEndian.PutUint64(buf[8:16], uint64(r.AcquiredAt))
	// buf[16:24] left as zeroed padding

	return buf
}

// unmarshalLockRecord parses the fixed 24-byte wire layout. It returns
// false if data is not exactly recordSize bytes long.
func unmarshalLockRecord(data []byte) (LockRecord, bool) {
	if len(data) != recordSize {
		return LockRecord{}, false
	}

	return LockRecord{
		Pid:        binary.BigEndian.Uint32(data[0:4]),
		AcquiredAt: int64(binary.BigEndian.Uint64(data[8:16])),
	}, true
}
