package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// The report layout mirrors what the analysis pipeline consumes: one JSON
// document per experiment with the settings and the observed results.
// Times are epoch milliseconds, deltas are milliseconds since the
// experiment start. The multicast settings are null when multicast is
// disabled.
type report struct {
	ID         string         `json:"id"`
	Seed       int            `json:"seed"`
	Repetition int            `json:"repetition"`
	Settings   reportSettings `json:"settings"`
	Result     reportResult   `json:"result"`
}

type reportSettings struct {
	NumberOfNodes          int      `json:"number_of_nodes"`
	Duration               int64    `json:"duration"`
	SimulateCatastrophe    bool     `json:"simulate_catastrophe"`
	GossipDelta            int64    `json:"gossip_delta"`
	FailureDelta           int64    `json:"failure_delta"`
	MissDelta              int64    `json:"miss_delta"`
	PushPull               bool     `json:"push_pull"`
	PickStrategy           int      `json:"pick_strategy"`
	EnableMulticast        bool     `json:"enable_multicast"`
	MulticastParameter     *float64 `json:"multicast_parameter"`
	MulticastMaxWait       *int     `json:"multicast_max_wait"`
	ExpectedFirstMulticast *float64 `json:"expected_first_multicast"`
}

type reportResult struct {
	StartTime       int64              `json:"start_time"`
	EndTime         int64              `json:"end_time"`
	ExpectedCrashes []reportedExpected `json:"expected_crashes"`
	ReportedCrashes []reportedObserved `json:"reported_crashes"`
	ReappearedNodes []reportedObserved `json:"reappeared_nodes"`
}

type reportedExpected struct {
	Delta int64  `json:"delta"`
	Node  string `json:"node"`
}

type reportedObserved struct {
	Delta    int64  `json:"delta"`
	Node     string `json:"node"`
	Reporter string `json:"reporter"`
}

func (e *Experiment) buildReport() *report {
	settings := reportSettings{
		NumberOfNodes:       e.NumberOfNodes,
		Duration:            e.Duration.Milliseconds(),
		SimulateCatastrophe: e.SimulateCatastrophe,
		GossipDelta:         e.GossipDelta.Milliseconds(),
		FailureDelta:        e.FailureDelta.Milliseconds(),
		MissDelta:           e.MissDelta.Milliseconds(),
		PushPull:            e.PushPull,
		PickStrategy:        int(e.Pick),
		EnableMulticast:     e.EnableMulticast,
	}
	if e.EnableMulticast {
		param := e.MulticastParam
		maxWait := e.MulticastMaxWait
		first := ExpectedFirstMulticast(e.NumberOfNodes, maxWait, param)
		settings.MulticastParameter = &param
		settings.MulticastMaxWait = &maxWait
		settings.ExpectedFirstMulticast = &first
	}

	expected := make([]reportedExpected, 0, len(e.ExpectedCrashes))
	for _, c := range e.ExpectedCrashes {
		expected = append(expected, reportedExpected{Delta: c.Delta.Milliseconds(), Node: c.Node})
	}
	reported := make([]reportedObserved, 0, len(e.reportedCrashes))
	for _, c := range e.reportedCrashes {
		reported = append(reported, reportedObserved{Delta: c.Delta.Milliseconds(), Node: c.Node, Reporter: c.Reporter})
	}
	reappeared := make([]reportedObserved, 0, len(e.reappeared))
	for _, c := range e.reappeared {
		reappeared = append(reappeared, reportedObserved{Delta: c.Delta.Milliseconds(), Node: c.Node, Reporter: c.Reporter})
	}

	return &report{
		ID:         e.ID,
		Seed:       e.Seed,
		Repetition: e.Repetition,
		Settings:   settings,
		Result: reportResult{
			StartTime:       e.start,
			EndTime:         e.stop,
			ExpectedCrashes: expected,
			ReportedCrashes: reported,
			ReappearedNodes: reappeared,
		},
	}
}

// GenerateReport serializes the experiment into <dir>/<id>.json. The
// experiment must have been started and stopped first; a write failure is
// returned to the caller, who decides whether to continue with the next
// experiment.
func (e *Experiment) GenerateReport(dir string) (string, error) {
	if e.start == 0 {
		panic("experiment: GenerateReport called before Start")
	}
	if e.stop == 0 {
		panic("experiment: GenerateReport called before Stop")
	}

	data, err := json.MarshalIndent(e.buildReport(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report %s: %w", e.ID, err)
	}

	path := filepath.Join(dir, e.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", e.ID, err)
	}
	return path, nil
}
