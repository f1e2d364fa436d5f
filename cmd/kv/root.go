package kv

import (
	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore *client.RPCStore

	// KeyValueCommands is the "kv" command group with one subcommand per string command
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Run string commands against a store shard",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupRPCClientFlags(KeyValueCommands)
	KeyValueCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	KeyValueCommands.AddCommand(
		// write
		setCmd, getSetCmd, setRangeCmd, msetCmd, msetNXCmd,
		incrCmd, incrFloatCmd, appendCmd, delCmd,
		// read
		getCmd, getRangeCmd, mgetCmd, strlenCmd, existsCmd, infoCmd,
		// raw and tooling
		execCmd, perfTestCmd,
	)
}

func setupKVClient(cmd *cobra.Command, _ []string) error {
	p, err := util.NewClientParts(cmd)
	if err != nil {
		return err
	}
	rpcStore, err = client.NewRPCStore(p.ShardID, p.Config, p.Transport, p.Serializer)
	return err
}
