package lock

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/lockmgr"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcLockMgr lockmgr.ILockManager

	acquireTTL  time.Duration
	acquireWait time.Duration

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Acquire and release leased locks",
		PersistentPreRunE: setupLockClient,
	}

	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire a lock",
		Long: "Acquire a lock. Prints the owner id needed to release it. " +
			"With --wait the command keeps trying until the lock is free or the wait time is over.",
		Args: cobra.ExactArgs(1),
		RunE: runAcquire,
	}

	releaseCmd = &cobra.Command{
		Use:   "release [key] [ownerId]",
		Short: "Release a lock",
		Long:  "Release a lock with the hex owner id printed by 'lock acquire'. Releasing with a foreign owner id has no effect.",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelease,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	LockCommands.AddCommand(acquireCmd, releaseCmd)
	util.SetupRPCClientFlags(LockCommands)

	// lock shards are served on a separate default id
	LockCommands.PersistentFlags().Int("shard", 200, util.WrapString("ID of the shard to connect to"))

	acquireCmd.Flags().DurationVar(&acquireTTL, "ttl", 30*time.Second, "Lease of the lock, it is released automatically afterwards (0 for no lease)")
	acquireCmd.Flags().DurationVar(&acquireWait, "wait", 0, "Keep retrying for this long while the lock is held by someone else")
}

func setupLockClient(cmd *cobra.Command, _ []string) error {
	p, err := util.NewClientParts(cmd)
	if err != nil {
		return err
	}
	rpcLockMgr, err = client.NewRPCLockMgr(p.ShardID, p.Config, p.Transport, p.Serializer)
	return err
}

func runAcquire(_ *cobra.Command, args []string) error {
	key := args[0]
	deadline := time.Now().Add(acquireWait)
	backoff := 20 * time.Millisecond

	for {
		acquired, ownerID, err := rpcLockMgr.AcquireLock(key, acquireTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %v", err)
		}
		if acquired {
			fmt.Printf("acquired=true, ownerId=%s\n", hex.EncodeToString(ownerID))
			return nil
		}
		if !time.Now().Add(backoff).Before(deadline) {
			fmt.Println("acquired=false")
			return nil
		}
		time.Sleep(backoff)
		backoff = min(backoff*2, time.Second)
	}
}

func runRelease(_ *cobra.Command, args []string) error {
	ownerID, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %v", args[1], err)
	}

	released, err := rpcLockMgr.ReleaseLock(args[0], ownerID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}
	fmt.Printf("released=%t\n", released)
	return nil
}
