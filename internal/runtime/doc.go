// Package runtime implements the Environment Factory: the per-process
// registry that owns the single KVS handle backing one queue directory.
//
// Example:
//
//	env, err := runtime.Initialize(
//	    runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeInterval},
//	    []string{"sub"}, schema.DefaultHighWaterMark(), schema.PruneFirst,
//	)
//	defer env.Close()
//	pub := publisher.New(env.Queue(), nil)
//	_, _ = pub.Send(context.Background(), []byte("hello"))
package runtime
