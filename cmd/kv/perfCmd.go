package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for sKV servers",
		Long: `Performance testing tool for sKV servers.

The rate limit of the server applies per client identifier, so every worker
opens a new session with a fresh random identifier after --ops-per-session
requests. Keep --ops-per-session below the rate limit of the server (the
DISCONNECT counts as a request as well).`,
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfTests           = []string{"put", "get", "delete", "mixed"}
	perfKeyPrefix       = "perf"
	perfNumThreads      = 10
	perfOps             = 200
	perfOpsPerSession   = 9
	perfValueSize       = 64
	perfKeySpread       = 100
	perfSkip            = make([]string, 0)
	perfPercentiles     = []float64{0.5, 0.95, 0.99}
	perfPercentileNames = []string{"p50", "p95", "p99"}
)

// perfResult holds the outcome of one benchmark
type perfResult struct {
	Test     string
	Skipped  bool
	Duration time.Duration
	Errors   int64
	Timer    metrics.Timer
	Connect  metrics.Timer
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent sessions to use for the benchmark"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 200, util.WrapString("Number of requests per benchmark"))
	key = "ops-per-session"
	perfTestCmd.Flags().Int(key, 9, util.WrapString("Number of requests a session sends before it reconnects with a new identifier"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("Size of the values written by the benchmarks (in bytes)"))
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
	perfNumThreads = viper.GetInt("threads")
	perfOps = viper.GetInt("ops")
	perfOpsPerSession = viper.GetInt("ops-per-session")
	perfValueSize = viper.GetInt("value-size")
	perfKeySpread = viper.GetInt("keys")
	if s := viper.GetString("skip"); s != "" {
		perfSkip = strings.Split(s, ",")
	}

	if perfNumThreads <= 0 || perfOps <= 0 || perfOpsPerSession <= 0 || perfValueSize <= 0 || perfKeySpread <= 0 {
		return fmt.Errorf("threads, ops, ops-per-session, value-size and keys must be positive")
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	config := util.GetClientConfig()

	fmt.Println("Performance testing tool for sKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d, Requests: %d, Requests per Session: %d\n", perfNumThreads, perfOps, perfOpsPerSession)
	fmt.Println()

	fmt.Println("starting tests...")

	value := strings.Repeat("x", perfValueSize)
	results := make([]perfResult, 0, len(perfTests))

	for _, test := range perfTests {
		if shouldSkip(test) {
			result := perfResult{Test: test, Skipped: true}
			results = append(results, result)
			printResult(result)
			continue
		}

		keys := getKeys(test)

		// get and delete need existing keys
		if test == "get" || test == "delete" {
			if _, err := runSessions(ctx, *config, len(keys), func(c *client.Client, i int) error {
				return c.Put(keys[i], value)
			}); err != nil {
				return fmt.Errorf("(%s) - failed to prepare keys: %w", test, err)
			}
		}

		result, err := runSessions(ctx, *config, perfOps, func(c *client.Client, i int) error {
			key := keys[i%len(keys)]
			switch test {
			case "put":
				return c.Put(key, value)
			case "get":
				_, err := c.Get(key)
				return err
			case "delete":
				return c.Delete(key)
			default:
				switch i % 3 {
				case 0:
					return c.Put(key, value)
				case 1:
					_, err := c.Get(key)
					return err
				default:
					return c.Delete(key)
				}
			}
		})
		if err != nil {
			return fmt.Errorf("(%s) - %w", test, err)
		}
		result.Test = test
		results = append(results, result)
		printResult(result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runSessions executes op for the indices 0..ops-1 on perfNumThreads workers.
// Each worker reconnects with a fresh identifier after perfOpsPerSession requests.
// Missing keys are no error, every other failed request is counted.
// Only failures to connect abort the run.
func runSessions(ctx context.Context, config common.ClientConfig, ops int, op func(c *client.Client, i int) error) (perfResult, error) {
	registry := metrics.NewRegistry()
	result := perfResult{
		Timer:   metrics.GetOrRegisterTimer("request", registry),
		Connect: metrics.GetOrRegisterTimer("connect", registry),
	}

	var next atomic.Int64
	var errCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()

	for w := 0; w < perfNumThreads; w++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				cfg := config
				cfg.ClientID = client.NewClientID()
				c := util.NewClient(cfg)

				connectStart := time.Now()
				if err := c.Connect(ctx); err != nil {
					return err
				}
				result.Connect.UpdateSince(connectStart)

				done := false
				for n := 0; n < perfOpsPerSession; n++ {
					i := int(next.Add(1) - 1)
					if i >= ops {
						done = true
						break
					}

					opStart := time.Now()
					err := op(c, i)
					result.Timer.UpdateSince(opStart)
					if err != nil && !isRejection(err) {
						errCount.Add(1)
					}
					if !c.Connected() {
						break
					}
				}

				if c.Connected() {
					if err := c.Disconnect(); err != nil {
						errCount.Add(1)
					}
				}
				if done {
					return nil
				}
			}
			return ctx.Err()
		})
	}

	err := g.Wait()
	result.Duration = time.Since(start)
	result.Errors = errCount.Load()
	return result, err
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// getKeys creates the test keys for a benchmark
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s %s %d", perfKeyPrefix, prefix, i)
	}
	return keys
}

// opsPerSec returns the throughput of a result
func opsPerSec(result perfResult) float64 {
	if result.Duration <= 0 {
		return 0
	}
	return float64(result.Timer.Count()) / result.Duration.Seconds()
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(result perfResult) {
	if result.Skipped {
		fmt.Printf("%-10sskipped\n", result.Test)
		return
	}

	snapshot := result.Timer.Snapshot()
	ps := snapshot.Percentiles(perfPercentiles)

	var sb strings.Builder
	for i, name := range perfPercentileNames {
		sb.WriteString(fmt.Sprintf("%s=%s ", name, time.Duration(ps[i])))
	}

	fmt.Printf("%-10sreqs=%d errors=%d mean=%s %s\t%.0f ops/sec (connect mean=%s)\n",
		result.Test,
		snapshot.Count(),
		result.Errors,
		time.Duration(snapshot.Mean()),
		sb.String(),
		opsPerSec(result),
		time.Duration(result.Connect.Snapshot().Mean()),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Requests", "Errors", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "OpsPerSec", "Skipped",
		"Endpoint", "TimeoutSec", "Threads", "OpsPerSession", "ValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, result := range results {
		row := []string{result.Test}

		if result.Skipped {
			row = append(row, "0", "0", "0", "0", "0", "0", "0", "true")
		} else {
			snapshot := result.Timer.Snapshot()
			ps := snapshot.Percentiles(perfPercentiles)
			row = append(row,
				strconv.FormatInt(snapshot.Count(), 10),
				strconv.FormatInt(result.Errors, 10),
				fmt.Sprintf("%.0f", snapshot.Mean()),
				fmt.Sprintf("%.0f", ps[0]),
				fmt.Sprintf("%.0f", ps[1]),
				fmt.Sprintf("%.0f", ps[2]),
				fmt.Sprintf("%.0f", opsPerSec(result)),
				"false",
			)
		}

		row = append(row,
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfOpsPerSession),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", result.Test, err)
		}
	}

	return nil
}
