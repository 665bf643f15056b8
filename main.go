package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	console "github.com/asynkron/goconsole"
	"github.com/asynkron/protoactor-go/actor"

	"gossip-failure-detection/config"
	"gossip-failure-detection/detector"
	"gossip-failure-detection/telemetry"
	"gossip-failure-detection/tracker"
	"gossip-failure-detection/utils"
)

var (
	logFile = flag.String(
		"log_file",
		"",
		"Path to the file where to save logs; empty means stderr")
	metricsAddr = flag.String(
		"metrics_addr",
		"",
		"Address to expose prometheus metrics on, e.g. 127.0.0.1:2112; empty disables the endpoint")
)

func main() {
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid tracker configuration: %v", err)
	}
	if err := os.MkdirAll(cfg.ReportPath, os.ModePerm); err != nil {
		log.Fatalf("Can not create the directory for the reports %s: %v", cfg.ReportPath, err)
	}

	out := os.Stderr
	if *logFile != "" {
		out = utils.OpenLogFile(*logFile)
	}
	logger := log.New(out, "", log.LstdFlags)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", telemetry.MetricsHandler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("Metrics endpoint failed: %v", err)
			}
		}()
	}

	system := actor.NewActorSystem()
	system.EventStream.Subscribe(
		func(event interface{}) {
			deadLetter, ok := event.(*actor.DeadLetterEvent)
			if ok {
				logger.Printf("Dead letter detected. To: %s\n", deadLetter.PID.String())
			}
		},
	)

	done := make(chan struct{})
	trackerPid, err := system.Root.SpawnNamed(
		actor.PropsFromProducer(
			func() actor.Actor {
				return tracker.NewTrackerActor(cfg, logger, done)
			}),
		"tracker",
	)
	if err != nil {
		logger.Fatalf("Could not start the tracker: %v", err)
	}

	for i := 0; i < cfg.Nodes; i++ {
		name := fmt.Sprintf("node-%d", i)
		_, err := system.Root.SpawnNamed(
			actor.PropsFromProducer(
				func() actor.Actor {
					return detector.NewNodeActor(trackerPid, logger)
				}),
			name,
		)
		if err != nil {
			logger.Fatalf("Could not start node %s: %v", name, err)
		}
	}

	logger.Printf("Simulation started with %d nodes, reports in %s\n", cfg.Nodes, cfg.ReportPath)

	// the tracker closes done after the last experiment; a console line
	// aborts the run early
	interrupted := make(chan struct{})
	go func() {
		_, _ = console.ReadLine()
		close(interrupted)
	}()

	select {
	case <-done:
		logger.Printf("All experiments finished\n")
	case <-interrupted:
		logger.Printf("Interrupted, shutting down\n")
	}
}
