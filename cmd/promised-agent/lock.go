package main

import (
	"fmt"
	"time"

	"github.com/grovestate/promised/pkg/config"
	"github.com/grovestate/promised/pkg/lock"
	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Inspect the transaction lock database",
}

var lockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List currently held locks",
	RunE:  runLockList,
}

var lockPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove locks older than --expire-after without signalling their owner",
	RunE:  runLockPurge,
}

func init() {
	lockPurgeCmd.Flags().Duration("expire-after", time.Minute, "Age beyond which a held lock is considered abandoned")

	lockCmd.AddCommand(lockListCmd)
	lockCmd.AddCommand(lockPurgeCmd)
}

func openLockManager(cmd *cobra.Command) (*lock.Manager, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
	}
	return lock.Open(cfg.WorkDir)
}

func runLockList(cmd *cobra.Command, args []string) error {
	m, err := openLockManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	infos, err := m.List()
	if err != nil {
		return err
	}

	if len(infos) == 0 {
		fmt.Println("no locks currently held")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%-40s pid=%-8d acquired=%s\n", info.Key, info.Pid, info.AcquiredAt.Format(time.RFC3339))
	}
	return nil
}

func runLockPurge(cmd *cobra.Command, args []string) error {
	m, err := openLockManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	expireAfter, _ := cmd.Flags().GetDuration("expire-after")
	n, err := m.PurgeExpired(time.Now(), expireAfter)
	if err != nil {
		return err
	}
	fmt.Printf("purged %d expired lock(s)\n", n)
	return nil
}
