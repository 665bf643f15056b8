package utils

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/asynkron/protoactor-go/actor"
)

// IdFromPid extracts the stable node identifier from a PID.
func IdFromPid(pid *actor.PID) string {
	if pid == nil {
		return "<nil>"
	}
	return pid.GetId()
}

// NowMillis returns the current time as epoch milliseconds.
// Experiment timestamps and report deltas are all expressed in this unit.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

func OpenLogFile(logFile string) *os.File {
	dir, _ := filepath.Split(logFile)
	if dir != "" {
		e := os.MkdirAll(dir, os.ModePerm)
		if e != nil {
			log.Printf("Could not create parent directories for %s, error: %v", logFile, e)
		}
	}

	f, e := os.Create(logFile)
	if e != nil {
		log.Printf("Could not open file %s to write logs into, error: %v", logFile, e)
	}

	return f
}
