package kv

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/spf13/cobra"
)

var (
	setOpts struct {
		nx      bool
		xx      bool
		ttl     time.Duration
		keepTTL bool
	}

	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. --nx only sets absent keys, --xx only existing keys. --ttl attaches an expiry, --keepttl keeps the expiry of an existing key.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := rpcStore.Set(args[0], []byte(args[1]), store.SetOptions{
				NX:      setOpts.nx,
				XX:      setOpts.xx,
				TTL:     setOpts.ttl,
				KeepTTL: setOpts.keepTTL,
			})
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, set=%t\n", args[0], ok)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if resp, ok, err := rpcStore.Get(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			}
			return nil
		},
	}
	getSetCmd = &cobra.Command{
		Use:   "getset [key] [value]",
		Short: "Sets the value for a key and returns the previous value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, found, err := rpcStore.GetSet(args[0], []byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, old=%s\n", args[0], found, old)
			return nil
		},
	}
	setRangeCmd = &cobra.Command{
		Use:   "setrange [key] [offset] [value]",
		Short: "Overwrites part of a value starting at offset",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("offset must be a number: %w", err)
			}
			length, err := rpcStore.SetRange(args[0], offset, []byte(args[2]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, length=%d\n", args[0], length)
			return nil
		},
	}
	getRangeCmd = &cobra.Command{
		Use:   "getrange [key] [start] [end]",
		Short: "Reads the bytes of a value between start and end (inclusive, negative counts from the end)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("start must be a number: %w", err)
			}
			end, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("end must be a number: %w", err)
			}
			value, err := rpcStore.GetRange(args[0], start, end)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, resp=%s\n", args[0], value)
			return nil
		},
	}
	mgetCmd = &cobra.Command{
		Use:   "mget [key...]",
		Short: "Reads the values of multiple keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := rpcStore.MGet(args...)
			if err != nil {
				return err
			}
			printValues(args, values)
			return nil
		},
	}
	msetCmd = &cobra.Command{
		Use:   "mset [key] [value] [key value...]",
		Short: "Sets the values of multiple keys",
		Args:  pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, values := splitPairs(args)
			if err := rpcStore.MSet(keys, values); err != nil {
				return err
			}
			fmt.Printf("set %d keys successfully\n", len(keys))
			return nil
		},
	}
	msetNXCmd = &cobra.Command{
		Use:   "msetnx [key] [value] [key value...]",
		Short: "Sets the values of multiple keys if none of them exists",
		Args:  pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, values := splitPairs(args)
			ok, err := rpcStore.MSetNX(keys, values)
			if err != nil {
				return err
			}
			fmt.Printf("set=%t\n", ok)
			return nil
		},
	}
	incrCmd = &cobra.Command{
		Use:   "incr [key] [delta]",
		Short: "Adds delta (default 1, may be negative) to the integer value of a key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta := int64(1)
			if len(args) == 2 {
				var err error
				if delta, err = strconv.ParseInt(args[1], 10, 64); err != nil {
					return fmt.Errorf("delta must be an integer: %w", err)
				}
			}
			value, err := rpcStore.IncrBy(args[0], delta)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, value=%d\n", args[0], value)
			return nil
		},
	}
	incrFloatCmd = &cobra.Command{
		Use:   "incrbyfloat [key] [delta]",
		Short: "Adds delta to the float value of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("delta must be a number: %w", err)
			}
			value, err := rpcStore.IncrByFloat(args[0], delta)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, value=%s\n", args[0], strconv.FormatFloat(value, 'f', -1, 64))
			return nil
		},
	}
	appendCmd = &cobra.Command{
		Use:   "append [key] [value]",
		Short: "Appends a value to a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			length, err := rpcStore.Append(args[0], []byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, length=%d\n", args[0], length)
			return nil
		},
	}
	strlenCmd = &cobra.Command{
		Use:   "strlen [key]",
		Short: "Returns the length of the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			length, err := rpcStore.StrLen(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, length=%d\n", args[0], length)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key...]",
		Short: "Deletes key value pairs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := rpcStore.Delete(args...)
			if err != nil {
				return err
			}
			fmt.Printf("deleted=%d\n", deleted)
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key...]",
		Short: "Counts how many of the keys exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := rpcStore.Exists(args...)
			if err != nil {
				return err
			}
			fmt.Printf("exists=%d\n", count)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the database of the shard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.Info()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	execCmd = &cobra.Command{
		Use:   "exec [command] [args...]",
		Short: "Executes a raw command (e.g. exec SET k v PX 1000)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			argv := make([][]byte, len(args))
			for i, a := range args {
				argv[i] = []byte(a)
			}
			reply, err := rpcStore.Exec(argv)
			if err != nil {
				return err
			}
			fmt.Println(reply.String())
			return nil
		},
	}
)

func init() {
	setCmd.Flags().BoolVar(&setOpts.nx, "nx", false, "Only set the key if it does not exist")
	setCmd.Flags().BoolVar(&setOpts.xx, "xx", false, "Only set the key if it already exists")
	setCmd.Flags().DurationVar(&setOpts.ttl, "ttl", 0, "Expire the key after this duration (e.g. 1500ms, 10s), 0 for no expiry")
	setCmd.Flags().BoolVar(&setOpts.keepTTL, "keepttl", false, "Keep the expiry of an existing key")
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// pairArgs requires a non-empty list of key value pairs
func pairArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return fmt.Errorf("expected key value pairs, got %d args", len(args))
	}
	return nil
}

// splitPairs splits alternating key value arguments
func splitPairs(args []string) ([]string, [][]byte) {
	keys := make([]string, 0, len(args)/2)
	values := make([][]byte, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		keys = append(keys, args[i])
		values = append(values, []byte(args[i+1]))
	}
	return keys, values
}

// printValues prints the result of a multi key read, absent keys are reported as not found
func printValues(keys []string, values [][]byte) {
	for i, key := range keys {
		if i >= len(values) || values[i] == nil {
			fmt.Printf("key=%s, found=false\n", key)
			continue
		}
		fmt.Printf("key=%s, found=true, resp=%s\n", key, values[i])
	}
}
