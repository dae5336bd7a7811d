package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/grovestate/promised/pkg/log"
	"github.com/grovestate/promised/pkg/metrics"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketLocks       = []byte("locks")
	bucketCompletions = []byte("completions")
)

// Handle references the lock_id/last_id pair returned by a successful
// Acquire, to be passed back to Yield once the promise has converged.
type Handle struct {
	Key      string
	host     string
	bundle   string
	operator string
	operand  string
}

// Manager is the persistent lock store: one bbolt database shared by
// every promise evaluation in the process, guarded by a mutex so two
// goroutines cannot race on the same key even though bbolt itself
// serialises writer transactions.
type Manager struct {
	mu sync.Mutex
	db *bolt.DB
}

// Open creates (or opens) the lock database under workDir.
func Open(workDir string) (*Manager, error) {
	dbPath := filepath.Join(workDir, "promised_locks.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("lock: open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketLocks); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketCompletions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("lock: create buckets: %w", err)
	}

	return &Manager{db: db}, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Acquire attempts to take the lock for one promise invocation. It
// returns a nil handle (with no error) whenever the promise should be
// treated as already satisfied: the last completion was too recent
// given ifElapsed, or a live lock is already held by another pid.
//
// A lock found to be older than expireAfter is treated as abandoned:
// Acquire tries to kill its owning pid with an INT, then (on failure)
// TERM, then (on failure) KILL, waiting between each, before removing
// the stale entry and proceeding to take the lock itself.
func (m *Manager) Acquire(operator, operand, host, bundle string, now time.Time, ifElapsed, expireAfter time.Duration) (*Handle, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.LockAcquireDuration)

	m.mu.Lock()
	defer m.mu.Unlock()

	key := lockKey(host, bundle, operator, operand)

	lastCompleted, found, err := m.readCompletion(key)
	if err != nil {
		return nil, err
	}
	if found {
		elapsed := now.Sub(lastCompleted)
		if elapsed < ifElapsed {
			log.WithComponent("lock").Debug().
				Str("key", key).
				Dur("elapsed", elapsed).
				Msg("nothing promised, last completion too recent")
			metrics.LockAcquireTotal.WithLabelValues("skipped_if_elapsed").Inc()
			return nil, nil
		}
	}

	existing, found, err := m.readLock(key)
	if err != nil {
		return nil, err
	}
	if found {
		acquiredAt := time.Unix(existing.AcquiredAt, 0)
		elapsed := now.Sub(acquiredAt)

		if elapsed < expireAfter {
			log.WithComponent("lock").Debug().
				Str("key", key).
				Msg("lock already held, not yet expired")
			metrics.LockAcquireTotal.WithLabelValues("skipped_held").Inc()
			return nil, nil
		}

		log.WithComponent("lock").Info().
			Str("key", key).
			Uint32("pid", existing.Pid).
			Msg("lock expired, reclaiming")

		if err := reclaimStalePid(int(existing.Pid)); err != nil {
			return nil, fmt.Errorf("lock: unable to reclaim expired lock %s: %w", key, err)
		}

		if err := m.deleteLock(key); err != nil {
			return nil, err
		}
		metrics.LockAcquireTotal.WithLabelValues("reclaimed").Inc()
	}

	record := LockRecord{Pid: uint32(os.Getpid()), AcquiredAt: now.Unix()}
	if err := m.writeLock(key, record); err != nil {
		return nil, err
	}

	metrics.LockAcquireTotal.WithLabelValues("acquired").Inc()
	return &Handle{Key: key, host: host, bundle: bundle, operator: operator, operand: operand}, nil
}

// Yield releases a held lock: the lock_id entry is removed and the
// completions entry is written with the current time, so a later
// Acquire's ifElapsed check sees this run as just having finished.
func (m *Manager) Yield(h *Handle, now time.Time) error {
	if h == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.deleteLock(h.Key); err != nil {
		return err
	}
	return m.writeCompletion(h.Key, LockRecord{Pid: uint32(os.Getpid()), AcquiredAt: now.Unix()})
}

// PurgeExpired sweeps every held lock and removes any whose
// acquired-at time plus expireAfter has already passed, without
// attempting to kill the owning process -- a background hygiene pass,
// not a replacement for the reclaim-then-acquire path in Acquire.
func (m *Manager) PurgeExpired(now time.Time, expireAfter time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiredKeys []string

	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		return b.ForEach(func(k, v []byte) error {
			rec, ok := unmarshalLockRecord(v)
			if !ok {
				return nil
			}
			if now.Sub(time.Unix(rec.AcquiredAt, 0)) >= expireAfter {
				expiredKeys = append(expiredKeys, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	if len(expiredKeys) == 0 {
		return 0, nil
	}

	err = m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		for _, k := range expiredKeys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(expiredKeys), nil
}

// CountHeld returns the number of currently-held locks, for metrics
// collection.
func (m *Manager) CountHeld() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		return b.ForEach(func(k, v []byte) error {
			n++
			return nil
		})
	})
	return n, err
}

// Info is one held lock as reported by List, for CLI inspection.
type Info struct {
	Key        string
	Pid        uint32
	AcquiredAt time.Time
}

// List returns every currently-held lock, for the "promised-agent lock
// list" inspection subcommand.
func (m *Manager) List() ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var infos []Info
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		return b.ForEach(func(k, v []byte) error {
			rec, ok := unmarshalLockRecord(v)
			if !ok {
				return nil
			}
			infos = append(infos, Info{Key: string(k), Pid: rec.Pid, AcquiredAt: time.Unix(rec.AcquiredAt, 0)})
			return nil
		})
	})
	return infos, err
}

func (m *Manager) readLock(key string) (LockRecord, bool, error) {
	return m.readBucket(bucketLocks, key)
}

func (m *Manager) readCompletion(key string) (time.Time, bool, error) {
	rec, found, err := m.readBucket(bucketCompletions, key)
	if err != nil || !found {
		return time.Time{}, found, err
	}
	return time.Unix(rec.AcquiredAt, 0), true, nil
}

func (m *Manager) readBucket(bucket []byte, key string) (LockRecord, bool, error) {
	var rec LockRecord
	var found bool

	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		var ok bool
		rec, ok = unmarshalLockRecord(data)
		if !ok {
			return fmt.Errorf("lock: corrupt record for key %q", key)
		}
		found = true
		return nil
	})
	return rec, found, err
}

func (m *Manager) writeLock(key string, rec LockRecord) error {
	return m.writeBucket(bucketLocks, key, rec)
}

func (m *Manager) writeCompletion(key string, rec LockRecord) error {
	return m.writeBucket(bucketCompletions, key, rec)
}

func (m *Manager) writeBucket(bucket []byte, key string, rec LockRecord) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), rec.marshal())
	})
}

func (m *Manager) deleteLock(key string) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		return b.Delete([]byte(key))
	})
}

// reclaimStalePid escalates INT -> TERM -> KILL against pid, waiting
// one second, five seconds, and one second respectively between
// signals, succeeding as soon as one of them either is delivered
// successfully or finds the process already gone (ESRCH).
func reclaimStalePid(pid int) error {
	if pid <= 0 {
		return errors.New("illegal pid in corrupt lock record")
	}

	escalation := []struct {
		signal syscall.Signal
		wait   time.Duration
	}{
		{syscall.SIGINT, time.Second},
		{syscall.SIGTERM, 5 * time.Second},
		{syscall.SIGKILL, time.Second},
	}

	var lastErr error
	for _, step := range escalation {
		err := syscall.Kill(pid, step.signal)
		if err == nil || errors.Is(err, syscall.ESRCH) {
			return nil
		}
		lastErr = err
		time.Sleep(step.wait)
	}

	return fmt.Errorf("unable to kill expired process %d: %w", pid, lastErr)
}
