// Package eventlogger wraps a plain log.Logger with the events the
// detector and the tracker emit, so that every line carries the actor id
// and the log call sites stay short.
package eventlogger

import (
	"log"
	"time"
)

type EventLogger struct {
	id     string
	logger *log.Logger
}

func InitEventLogger(id string, logger *log.Logger) *EventLogger {
	l := new(EventLogger)
	l.id = id
	l.logger = logger
	return l
}

func (el *EventLogger) Printf(message string, args ...any) {
	el.logger.Printf(el.id+": "+message, args...)
}

func (el *EventLogger) OnRegistration(node string) {
	el.Printf("Registration of node %s", node)
}

func (el *EventLogger) OnRegistrationOverflow(node string) {
	el.Printf("Too many nodes joined already, can not accept node %s", node)
}

func (el *EventLogger) OnReady(nodes int) {
	el.Printf("Got %d nodes, ready to start the experiments", nodes)
}

func (el *EventLogger) OnExperimentsGenerated(count int) {
	el.Printf("Generated %d experiments", count)
}

func (el *EventLogger) OnExperimentStart(index int, total int, description string) {
	el.Printf("Start experiment %d of %d [%s]", index+1, total, description)
}

func (el *EventLogger) OnExperimentEnd(index int, total int) {
	el.Printf("Stop experiment %d of %d", index+1, total)
}

func (el *EventLogger) OnReportWritten(id string, path string) {
	el.Printf("Generated report %s at %s", id, path)
}

func (el *EventLogger) OnReportError(id string, err error) {
	el.Printf("Could not write report for experiment %s: %v", id, err)
}

func (el *EventLogger) OnShutdown() {
	el.Printf("No more experiments to perform, shutting down")
}

func (el *EventLogger) OnStart(faulty bool, crashAt time.Duration) {
	if faulty {
		el.Printf("onStart complete (faulty, crashes in %v)", crashAt)
		return
	}
	el.Printf("onStart complete (correct)")
}

func (el *EventLogger) OnStop() {
	el.Printf("onStop complete")
}

func (el *EventLogger) OnSelfCrash() {
	el.Printf("simulated crash, node is silent until the next experiment")
}

func (el *EventLogger) OnGossip(target string, beats string) {
	el.Printf("gossiped to %s: %s", target, beats)
}

func (el *EventLogger) OnGossipSkipped() {
	el.Printf("gossip skipped, no correct node available")
}

func (el *EventLogger) OnMulticast(targets int) {
	el.Printf("catastrophe multicast sent to %d nodes", targets)
}

func (el *EventLogger) OnPeerMissing(peer string) {
	el.Printf("node %s is missing, waiting for the miss delta", peer)
}

func (el *EventLogger) OnPeerFailed(peer string) {
	el.Printf("node %s reported as failed", peer)
}

func (el *EventLogger) OnPeerCleanup(peer string) {
	el.Printf("node %s cleanup", peer)
}

func (el *EventLogger) OnPeerReappeared(peer string) {
	el.Printf("node %s reappeared after being reported as failed", peer)
}

func (el *EventLogger) OnStaleTimer(timer string) {
	el.Printf("dropped stale timer %s", timer)
}

func (el *EventLogger) OnCrashReported(node string, reporter string) {
	el.Printf("report crash of node %s (from node %s)", node, reporter)
}

func (el *EventLogger) OnReportOutsideExperiment(node string, reporter string) {
	el.Printf("crash report of %s from %s outside an experiment, there must be an error", node, reporter)
}

func (el *EventLogger) OnNodeCrash(node string) {
	el.Printf("node %s crash", node)
}

func (el *EventLogger) OnUnknownMessage(message any) {
	el.Printf("received unknown message -> %+v", message)
}

func (el *EventLogger) OnDroppedMessage(message any) {
	el.Printf("dropped message -> %+v", message)
}
