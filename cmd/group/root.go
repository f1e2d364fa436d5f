package group

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/sKV/cmd/util"
	libgroup "github.com/ValentinKolb/sKV/lib/group"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore *client.RPCStore

	// GroupCommands represents the group cache command group
	GroupCommands = &cobra.Command{
		Use:               "group",
		Short:             "Perform group cache operations",
		Long:              "Group cache operations. A group is the set of keys written or read together, its id is derived from the key list (see 'group id').",
		PersistentPreRunE: setupGroupClient,
	}

	gsetCmd = &cobra.Command{
		Use:   "set [key] [value] [key value...]",
		Short: "Writes the key value pairs to the group cache and registers their group",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected key value pairs, got %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]string, 0, len(args)/2)
			values := make([][]byte, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				keys = append(keys, args[i])
				values = append(values, []byte(args[i+1]))
			}
			if err := rpcStore.GroupSet(keys, values); err != nil {
				return err
			}
			fmt.Printf("group=%s, set successfully\n", strconv.Quote(libgroup.DeriveID(keys)))
			return nil
		},
	}
	ggetCmd = &cobra.Command{
		Use:   "get [key...]",
		Short: "Reads keys from the group cache and touches their group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := rpcStore.GroupGet(args...)
			if err != nil {
				return err
			}
			for i, key := range args {
				if i >= len(values) || values[i] == nil {
					fmt.Printf("key=%s, found=false\n", key)
					continue
				}
				fmt.Printf("key=%s, found=true, resp=%s\n", key, values[i])
			}
			return nil
		},
	}
	gdelCmd = &cobra.Command{
		Use:   "del [groupId]",
		Short: "Removes a group and purges members no other group references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := rpcStore.GroupDelete(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("group=%s, deleted=%t\n", strconv.Quote(args[0]), ok)
			return nil
		},
	}
	grecencyCmd = &cobra.Command{
		Use:   "recency [groupId]",
		Short: "Prints the last access of a group on the recency clock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, found, err := rpcStore.GroupRecency(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("group=%s, found=%t, recency=%d\n", strconv.Quote(args[0]), found, at)
			return nil
		},
	}
	goldestCmd = &cobra.Command{
		Use:   "oldest [count]",
		Short: "Lists the least recently used groups, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("count must be a number: %w", err)
			}
			ids, err := rpcStore.GroupOldest(n)
			if err != nil {
				return err
			}
			for i, id := range ids {
				fmt.Printf("%d) %s\n", i+1, strconv.Quote(id))
			}
			return nil
		},
	}
	grefcountCmd = &cobra.Command{
		Use:   "refcount [key]",
		Short: "Prints how many credited groups contain a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := rpcStore.GroupRefCount(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, refcount=%d\n", args[0], count)
			return nil
		},
	}
	gidCmd = &cobra.Command{
		Use:   "id [key...]",
		Short: "Prints the group id of a key list (computed locally)",
		Args:  cobra.MinimumNArgs(1),
		// the id is computed locally, no client needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(strconv.Quote(libgroup.DeriveID(args)))
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the group command
	util.SetupRPCClientFlags(GroupCommands)

	// Groups live in the key value shards
	GroupCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add subcommands
	GroupCommands.AddCommand(gsetCmd)
	GroupCommands.AddCommand(ggetCmd)
	GroupCommands.AddCommand(gdelCmd)
	GroupCommands.AddCommand(grecencyCmd)
	GroupCommands.AddCommand(goldestCmd)
	GroupCommands.AddCommand(grefcountCmd)
	GroupCommands.AddCommand(gidCmd)
}

// setupGroupClient initializes the RPC store client
func setupGroupClient(cmd *cobra.Command, _ []string) error {
	p, err := util.NewClientParts(cmd)
	if err != nil {
		return err
	}
	rpcStore, err = client.NewRPCStore(p.ShardID, p.Config, p.Transport, p.Serializer)
	return err
}
