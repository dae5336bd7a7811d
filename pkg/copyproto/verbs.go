package copyproto

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// FileStat mirrors the thirteen whitespace-separated fields a STAT
// reply packs into a single frame, plus the readlink target that
// follows it in its own frame when the entry is a symlink.
type FileStat struct {
	Mode       uint32
	LinkMode   uint32 // cf_lmode: the link's own mode, distinct from Mode when IsLink
	UID        int
	GID        int
	Size       int64
	AccessTime int64
	ModifyTime int64
	ChangeTime int64
	IsDir      bool
	IsLink     bool
	IsSocket   bool
	LinkCount  int
	Device     int64
	Inode      int64
	LinkTarget string
}

// EffectiveMode returns LinkMode when requesting the link's own stat
// (wantLink) and LinkMode is populated, otherwise Mode -- the override
// rule the stat cache applies when a cached "file" stat is reused to
// answer a "link" stat request on the same path.
func (st FileStat) EffectiveMode(wantLink bool) uint32 {
	if wantLink && st.LinkMode != 0 {
		return st.LinkMode
	}
	return st.Mode
}

// Stat issues a STAT (or, when statLink is true, an LSTAT) request for
// path over conn and parses the reply.
func (c *AgentConnection) Stat(path string, statLink bool) (FileStat, error) {
	verb := "STAT"
	if statLink {
		verb = "LSTAT"
	}
	if err := c.sendVerb(verb, path); err != nil {
		return FileStat{}, err
	}

	reply, err := c.readEncryptedFrame()
	if err != nil {
		return FileStat{}, fmt.Errorf("copyproto: stat reply: %w", err)
	}
	if strings.HasPrefix(string(reply), "BAD") {
		return FileStat{}, fmt.Errorf("copyproto: stat %s: %s", path, strings.TrimSpace(string(reply)))
	}

	fields := strings.Fields(string(reply))
	if len(fields) < 13 {
		return FileStat{}, fmt.Errorf("copyproto: stat reply has %d fields, want at least 13", len(fields))
	}

	var st FileStat
	var mode, isDir, isLink, isSocket int
	_, err = fmt.Sscanf(strings.Join(fields[:13], " "), "%d %d %d %d %d %d %d %d %d %d %d %d %d",
		&mode, &st.UID, &st.GID, &st.Size, &st.AccessTime, &st.ModifyTime, &st.ChangeTime,
		&isDir, &isLink, &isSocket, &st.LinkCount, &st.Device, &st.Inode)
	if err != nil {
		return FileStat{}, fmt.Errorf("copyproto: parse stat reply: %w", err)
	}
	st.Mode = uint32(mode)
	st.IsDir = isDir != 0
	st.IsLink = isLink != 0
	st.IsSocket = isSocket != 0

	if len(fields) >= 14 {
		var lmode int
		if _, err := fmt.Sscanf(fields[13], "%d", &lmode); err == nil {
			st.LinkMode = uint32(lmode)
		}
	}

	if st.IsLink {
		target, err := c.readEncryptedFrame()
		if err != nil {
			return FileStat{}, fmt.Errorf("copyproto: stat readlink target: %w", err)
		}
		st.LinkTarget = string(target)
	}
	return st, nil
}

// OpenDir lists the entries of a remote directory. The server streams
// filenames one per frame until OpenDirSentinel; the listing has no
// length prefix of its own, only the sentinel terminator.
func (c *AgentConnection) OpenDir(path string) ([]string, error) {
	if err := c.sendVerb("OPENDIR", path); err != nil {
		return nil, err
	}

	var names []string
	for {
		payload, err := c.readEncryptedFrame()
		if err != nil {
			return nil, fmt.Errorf("copyproto: opendir: %w", err)
		}
		name := string(payload)
		if name == OpenDirSentinel {
			break
		}
		names = append(names, name)
	}
	return names, nil
}

// MD5 requests the server's digest of path and reports whether it
// equals want.
func (c *AgentConnection) MD5(path string, want []byte) (bool, error) {
	if err := c.sendVerb("MD5", path); err != nil {
		return false, err
	}
	reply, err := c.readEncryptedFrame()
	if err != nil {
		return false, fmt.Errorf("copyproto: md5 reply: %w", err)
	}
	if len(reply) != len(want) {
		return false, nil
	}
	return constantTimeEqual(reply, want), nil
}

// Get streams path from the server into dst, decrypting each block
// under the session key as it arrives. It returns the number of bytes
// written.
func (c *AgentConnection) Get(path string, dst io.Writer) (int64, error) {
	if err := c.sendVerb("GET", path); err != nil {
		return 0, err
	}

	var total int64
	for {
		ctl, block, err := ReadFrame(c.conn)
		if err != nil {
			return total, fmt.Errorf("copyproto: get: read block: %w", err)
		}
		if len(block) > 0 {
			plain, err := DecryptBlock(c.SessionKey, block)
			if err != nil {
				return total, fmt.Errorf("copyproto: get: decrypt block: %w", err)
			}
			plain, err = unpadPKCS7(plain)
			if err != nil {
				return total, fmt.Errorf("copyproto: get: unpad block: %w", err)
			}
			n, err := dst.Write(plain)
			if err != nil {
				return total, fmt.Errorf("copyproto: get: write block: %w", err)
			}
			total += int64(n)
		}
		if ctl == Done {
			break
		}
	}
	return total, nil
}

// GetFile streams path from the server into a freshly created file at
// destPath, preserving the source's sparse regions: a decrypted block
// that is entirely zero advances the
// writer's logical offset via Seek instead of being written out, and
// Close materializes the correct final size if the stream ended inside
// a hole. Post-transfer size verification is the caller's
// responsibility: GetFile returns the byte count, and the copy
// subcommand compares it against the size from its STAT reply.
func (c *AgentConnection) GetFile(path, destPath string) (int64, error) {
	w, err := NewSparseWriter(destPath)
	if err != nil {
		return 0, err
	}

	if err := c.sendVerb("GET", path); err != nil {
		_ = w.Close()
		_ = removeFailed(destPath)
		return 0, err
	}

	var total int64
	for {
		ctl, block, err := ReadFrame(c.conn)
		if err != nil {
			_ = w.Close()
			return total, fmt.Errorf("copyproto: get: read block: %w", err)
		}
		if len(block) > 0 {
			plain, err := DecryptBlock(c.SessionKey, block)
			if err != nil {
				_ = w.Close()
				return total, fmt.Errorf("copyproto: get: decrypt block: %w", err)
			}
			plain, err = unpadPKCS7(plain)
			if err != nil {
				_ = w.Close()
				return total, fmt.Errorf("copyproto: get: unpad block: %w", err)
			}
			if err := w.WriteBlock(plain); err != nil {
				_ = w.Close()
				return total, err
			}
			total += int64(len(plain))
		}
		if ctl == Done {
			break
		}
	}
	if err := w.Close(); err != nil {
		return total, fmt.Errorf("copyproto: get: finalize destination: %w", err)
	}
	return total, nil
}

func removeFailed(path string) error {
	return os.Remove(path)
}

// sendVerb encrypts and sends a single verb-plus-argument command
// line, marking the connection as failed on any write error so later
// calls short-circuit instead of retrying a dead session.
func (c *AgentConnection) sendVerb(verb, arg string) error {
	if c.Error {
		return fmt.Errorf("copyproto: connection already in error state")
	}
	line := verb + " " + arg
	block, err := EncryptBlock(c.SessionKey, padPKCS7([]byte(line)))
	if err != nil {
		c.Error = true
		return fmt.Errorf("copyproto: encrypt verb: %w", err)
	}
	if err := WriteFrame(c.conn, Done, block); err != nil {
		c.Error = true
		return fmt.Errorf("copyproto: send verb: %w", err)
	}
	return nil
}

// readEncryptedFrame reads one frame, decrypts and unpads it under
// the session key.
func (c *AgentConnection) readEncryptedFrame() ([]byte, error) {
	_, block, err := ReadFrame(c.conn)
	if err != nil {
		c.Error = true
		return nil, err
	}
	plain, err := DecryptBlock(c.SessionKey, block)
	if err != nil {
		c.Error = true
		return nil, err
	}
	return unpadPKCS7(plain)
}
