// Package config loads the deployment configuration file: named publishers
// and subscribers pointing at queue directories, and per-queue limits and
// high-water-mark parameters. See the Deployment type for the JSON schema.
//
// Example:
//
//	dep, err := config.Load("/etc/pubqueue/deployment.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	queuePath, subscribers, err := dep.ResolvePublisherQueue("alerts")
//	qc := dep.Queues[queuePath]
//	strategy, err := qc.StrategyOrDefault()
//	env, err := runtime.Initialize(
//	    runtime.Options{DataDir: queuePath},
//	    subscribers, qc.HighWaterMarkOrDefault(), strategy,
//	)
package config
