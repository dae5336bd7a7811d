package main

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovestate/promised/pkg/config"
	"github.com/grovestate/promised/pkg/copyproto"
	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:   "copy <server> <remote-path> <local-path>",
	Short: "Fetch one file from a copy-protocol server, standalone",
	Args:  cobra.ExactArgs(3),
	RunE:  runCopy,
}

func init() {
	copyCmd.Flags().String("username", "root", "Username presented during the handshake")
	copyCmd.Flags().Bool("fips", false, "Restrict the handshake to FIPS-approved primitives")
	copyCmd.Flags().Bool("trust-on-first-use", true, "Accept and cache an unrecognised server's public key")
}

func runCopy(cmd *cobra.Command, args []string) error {
	server, remotePath, localPath := args[0], args[1], args[2]

	username, _ := cmd.Flags().GetString("username")
	fipsMode, _ := cmd.Flags().GetBool("fips")
	tofu, _ := cmd.Flags().GetBool("trust-on-first-use")

	clientKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("copy: generate client key: %w", err)
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
	}

	cache, err := copyproto.NewPersistentServerKeyCache(filepath.Join(cfg.WorkDir, "ppkeys"), tofu)
	if err != nil {
		return fmt.Errorf("copy: open server key cache: %w", err)
	}
	handshakeCfg := copyproto.HandshakeConfig{
		Username:  username,
		FIPSMode:  fipsMode,
		ClientKey: clientKey,
	}

	conn, err := copyproto.Dial(server, handshakeCfg, cache)
	if err != nil {
		return fmt.Errorf("copy: dial %s: %w", server, err)
	}
	defer conn.Close()

	stat, err := conn.Stat(remotePath, false)
	if err != nil {
		return fmt.Errorf("copy: stat %s: %w", remotePath, err)
	}
	fmt.Printf("%s: %d bytes, mode %o\n", remotePath, stat.Size, stat.Mode)

	n, err := conn.GetFile(remotePath, localPath)
	if err != nil {
		return fmt.Errorf("copy: get %s: %w", remotePath, err)
	}
	if n != stat.Size {
		_ = os.Remove(localPath)
		return fmt.Errorf("copy: %s: transferred %d bytes, announced size was %d", remotePath, n, stat.Size)
	}

	fmt.Printf("wrote %d bytes to %s\n", n, localPath)
	return nil
}
