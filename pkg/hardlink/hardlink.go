package hardlink

import (
	"fmt"
	"os"
	"sync"

	"github.com/grovestate/promised/pkg/metrics"
)

// Key identifies a source inode within one recursive copy descent.
type Key struct {
	Device int64
	Inode  int64
}

// Cache maps a source (device, inode) to the first destination path a
// recursive copy wrote it to. Construct one per recursive descent with
// New; do not share across descents.
type Cache struct {
	mu    sync.Mutex
	links map[Key]string
}

// New returns an empty hard-link cache.
func New() *Cache {
	return &Cache{links: make(map[Key]string)}
}

// Preserve records or replays hard-link topology for one copied file.
// nlink is the source file's link count as reported by the remote
// stat; device and inode identify the source inode.
//
// If nlink <= 1 the source has no other names and Preserve is a no-op,
// returning linked=false so the caller proceeds with a normal content
// copy.
//
// Otherwise, the first call for a given (device, inode) records dest
// as that inode's destination and returns linked=false (write the
// content normally). Every subsequent call for the same (device,
// inode) hard-links dest to the first destination instead -- removing
// any existing file at dest first -- and returns linked=true, meaning
// the caller must skip writing the file's content since Preserve
// already materialised it via os.Link.
func (c *Cache) Preserve(nlink int, device, inode int64, dest string) (linked bool, err error) {
	if nlink <= 1 {
		return false, nil
	}

	c.mu.Lock()
	key := Key{Device: device, Inode: inode}
	first, ok := c.links[key]
	if !ok {
		c.links[key] = dest
	}
	c.mu.Unlock()

	if !ok {
		return false, nil
	}
	if first == dest {
		return true, nil
	}

	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("hardlink: remove existing %s: %w", dest, err)
	}
	if err := os.Link(first, dest); err != nil {
		return false, fmt.Errorf("hardlink: link %s to %s: %w", dest, first, err)
	}

	metrics.HardLinksPreservedTotal.Inc()
	return true, nil
}

// Len reports the number of distinct inodes tracked so far, for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.links)
}
