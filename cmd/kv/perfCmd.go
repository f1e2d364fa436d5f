package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for sKV servers",
		Long:    "Runs parallel benchmarks of the string and group commands against a server. Benchmarks: " + strings.Join(perfCaseNames(), ", "),
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// --------------------------------------------------------------------------
// Benchmark Cases
// --------------------------------------------------------------------------

// perfCase is one benchmark. prepare runs once before the timer starts (keys are the
// benchmark's own key set), op runs once per iteration with the iteration counter.
type perfCase struct {
	name    string
	prepare func(keys []string) error
	op      func(keys []string, i int) error
}

func perfCases() []perfCase {
	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	fill := func(keys []string) error {
		for _, k := range keys {
			if _, err := rpcStore.Set(k, []byte("test"), store.SetOptions{}); err != nil {
				return err
			}
		}
		return nil
	}
	pick := func(keys []string, i int) string { return keys[i%len(keys)] }

	return []perfCase{
		{
			name: "set",
			op: func(keys []string, i int) error {
				_, err := rpcStore.Set(pick(keys, i), []byte("test"), store.SetOptions{})
				return err
			},
		},
		{
			name: "set-large",
			op: func(keys []string, i int) error {
				_, err := rpcStore.Set(pick(keys, i), largeValue, store.SetOptions{})
				return err
			},
		},
		{
			name: "set-ttl",
			op: func(keys []string, i int) error {
				_, err := rpcStore.Set(pick(keys, i), []byte("test"), store.SetOptions{TTL: time.Minute})
				return err
			},
		},
		{
			name:    "get",
			prepare: fill,
			op: func(keys []string, i int) error {
				_, _, err := rpcStore.Get(pick(keys, i))
				return err
			},
		},
		{
			name: "incr",
			op: func(keys []string, i int) error {
				_, err := rpcStore.IncrBy(pick(keys, i), 1)
				return err
			},
		},
		{
			name: "append",
			op: func(keys []string, i int) error {
				_, err := rpcStore.Append(pick(keys, i), []byte("x"))
				return err
			},
		},
		{
			name:    "mget",
			prepare: fill,
			op: func(keys []string, i int) error {
				_, err := rpcStore.MGet(pick(keys, i), pick(keys, i+1), pick(keys, i+2))
				return err
			},
		},
		{
			name: "gset",
			op: func(keys []string, i int) error {
				return rpcStore.GroupSet(
					[]string{pick(keys, i), pick(keys, i+1)},
					[][]byte{[]byte("a"), []byte("b")},
				)
			},
		},
		{
			name: "gget",
			prepare: func(keys []string) error {
				for i := range keys {
					if err := rpcStore.GroupSet([]string{pick(keys, i), pick(keys, i+1)}, [][]byte{[]byte("a"), []byte("b")}); err != nil {
						return err
					}
				}
				return nil
			},
			op: func(keys []string, i int) error {
				_, err := rpcStore.GroupGet(pick(keys, i), pick(keys, i+1))
				return err
			},
		},
		{
			name:    "mixed",
			prepare: fill,
			op: func(keys []string, i int) error {
				key := pick(keys, i)
				var err error
				switch i % 4 {
				case 0:
					_, err = rpcStore.Set(key, []byte("test"), store.SetOptions{})
				case 1:
					_, _, err = rpcStore.Get(key)
				case 2:
					_, err = rpcStore.Delete(key)
				case 3:
					_, err = rpcStore.Exists(key)
				}
				return err
			},
		},
	}
}

func perfCaseNames() []string {
	names := make([]string, 0)
	for _, c := range perfCases() {
		names = append(names, c.name)
	}
	return names
}

// --------------------------------------------------------------------------
// Runner
// --------------------------------------------------------------------------

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for sKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	for _, c := range perfCases() {
		if slices.Contains(perfSkip, c.name) {
			printResult(c.name, testing.BenchmarkResult{})
			continue
		}
		result := runCase(c)
		results[c.name] = result
		printResult(c.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runCase benchmarks one case on its own key set and deletes the keys afterward
func runCase(c perfCase) testing.BenchmarkResult {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, c.name, i)
	}

	return testing.Benchmark(func(b *testing.B) {
		if c.prepare != nil {
			if err := c.prepare(keys); err != nil {
				log.Printf("(%s) - error preparing keys: %v\n", c.name, err)
			}
		}

		// cleanup
		b.Cleanup(func() {
			if _, err := rpcStore.Delete(keys...); err != nil {
				log.Printf("(%s) - error deleting keys: %v\n", c.name, err)
			}
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := c.op(keys, counter); err != nil {
					log.Printf("(%s) - error: %v\n", c.name, err)
				}
				counter++
			}
		})
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results in a stable order
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, test := range names {
		result := results[test]
		nsPerOp := math.Max(float64(result.NsPerOp()), 1)
		opsPerSec := 1.0 / (nsPerOp / 1e9)

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
