package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rzbill/pubqueue/internal/config"
	"github.com/rzbill/pubqueue/internal/pubqueue/control"
	"github.com/rzbill/pubqueue/internal/runtime"
	pebblestore "github.com/rzbill/pubqueue/internal/storage/pebble"
	logpkg "github.com/rzbill/pubqueue/pkg/log"
)

func main() {
	procCfg := config.ProcessConfigFromEnv(config.ProcessConfig{LogLevel: "info", LogFormat: "text"})

	level, err := logpkg.ParseLevel(procCfg.LogLevel)
	if err != nil {
		level = logpkg.InfoLevel
	}
	var formatter logpkg.Formatter = &logpkg.TextFormatter{}
	if procCfg.LogFormat == "json" {
		formatter = &logpkg.JSONFormatter{}
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithFormatter(formatter),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "pubqueue",
		Short: "pubqueue administrative CLI",
		Long:  "pubqueue manages deployment-file-driven pub/sub queues backed by a local transactional KVS.",
	}
	rootCmd.AddCommand(
		newInitializeCmd(logger),
		newPruneDanglingCmd(logger),
		newClearAllCmd(logger),
		newStatsCmd(logger),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logpkg.Err(err))
		os.Exit(1)
	}
}

func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fsyncModeFlag(cmd *cobra.Command) (pebblestore.FsyncMode, error) {
	raw, _ := cmd.Flags().GetString("fsync")
	switch raw {
	case "", "always":
		return pebblestore.FsyncModeAlways, nil
	case "interval":
		return pebblestore.FsyncModeInterval, nil
	case "never":
		return pebblestore.FsyncModeNever, nil
	default:
		return 0, fmt.Errorf("invalid --fsync; use always|interval|never")
	}
}

func newInitializeCmd(logger logpkg.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initialize <config-file> <queue-path>",
		Short: "Write a fresh queue's parameter records from a deployment config entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dep, err := config.Load(args[0])
			if err != nil {
				return err
			}
			queuePath := args[1]
			qc, ok := dep.Queues[queuePath]
			if !ok {
				return fmt.Errorf("no queues[%q] entry in %s", queuePath, args[0])
			}
			strategy, err := qc.StrategyOrDefault()
			if err != nil {
				return err
			}
			fsync, err := fsyncModeFlag(cmd)
			if err != nil {
				return err
			}

			env, err := runtime.Initialize(
				runtime.Options{DataDir: queuePath, Fsync: fsync, Logger: logger},
				qc.Subscribers, qc.HighWaterMarkOrDefault(), strategy,
			)
			if err != nil {
				return err
			}
			defer env.Close()

			logger.Info("queue initialized", logpkg.Str("path", env.Path()), logpkg.Int("subscribers", len(qc.Subscribers)))
			return nil
		},
	}
	cmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	return cmd
}

func newPruneDanglingCmd(logger logpkg.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune-dangling <queue-path>",
		Short: "Run dangling-message reclamation against an already-initialized queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := notifyContext()
			defer cancel()

			env, err := runtime.Open(runtime.Options{DataDir: args[0], Logger: logger})
			if err != nil {
				return err
			}
			defer env.Close()

			reclaimed, err := control.PruneDanglingMessages(ctx, env.Queue())
			if err != nil {
				return err
			}
			fmt.Printf("reclaimed=%d\n", reclaimed)
			return nil
		},
	}
	return cmd
}

func newClearAllCmd(logger logpkg.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-all <queue-path>",
		Short: "Empty every subscriber's sub-database and zero pending counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := notifyContext()
			defer cancel()

			env, err := runtime.Open(runtime.Options{DataDir: args[0], Logger: logger})
			if err != nil {
				return err
			}
			defer env.Close()

			if err := control.ClearAllSubscribers(ctx, env.Queue()); err != nil {
				return err
			}
			logger.Info("cleared all subscribers", logpkg.Str("path", env.Path()))
			return nil
		},
	}
	return cmd
}

func newStatsCmd(logger logpkg.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <queue-path>",
		Short: "Report message count, approximate on-disk size, and per-subscriber pending depth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := runtime.Open(runtime.Options{DataDir: args[0], Logger: logger})
			if err != nil {
				return err
			}
			defer env.Close()

			q := env.Queue()
			count, err := q.CountMsgs()
			if err != nil {
				return err
			}
			size, err := q.CheckSize()
			if err != nil {
				return err
			}
			fmt.Printf("count_msgs=%d approx_size_bytes=%d\n", count, size)

			for _, subID := range q.SubscriberIDs() {
				ids, err := q.SubMsgIDs(subID)
				if err != nil {
					return err
				}
				fmt.Printf("subscriber=%s pending=%d\n", subID, len(ids))
			}
			return nil
		},
	}
	return cmd
}
