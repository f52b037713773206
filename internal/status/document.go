// Package status implements the Status Channel of spec §4.8: a single file
// per session, written atomically by the agent and tailed by the host, plus
// the enrichment and push-transport pieces layered on top of it.
package status

import (
	"time"

	"gopkg.in/yaml.v3"
)

// TestResult is the optional tests field of the Status document.
type TestResult string

const (
	TestsPassed  TestResult = "passed"
	TestsFailed  TestResult = "failed"
	TestsUnknown TestResult = "unknown"
)

// Confidence is the optional confidence field of the Status document.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Document is the Status document of spec §3: the agent's self-reported
// progress, always overwritten in place, never consumed-and-deleted like a
// finish/cancel signal.
type Document struct {
	Task       string     `yaml:"task"`
	Timestamp  time.Time  `yaml:"timestamp"`
	Blocked    bool       `yaml:"blocked"`
	Tests      TestResult `yaml:"tests,omitempty"`
	Confidence Confidence `yaml:"confidence,omitempty"`
	Todos      string     `yaml:"todos,omitempty"`

	// DiffStat and Warning are host-side enrichments appended after the
	// document is read, never written by the agent.
	DiffStat *DiffStat `yaml:"diff_stat,omitempty"`
	Warning  string    `yaml:"warning,omitempty"`
}

// Parse decodes raw Status document bytes.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Marshal encodes a Status document, used by tests and by the agent-side
// helper that writes status from within the launched process.
func Marshal(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

const freshnessWindow = 30 * time.Second

// IsFresh reports whether doc's timestamp is recent enough to trust, per the
// "freshness indicator computed from timestamp" requirement of §4.8.
func IsFresh(doc *Document, now time.Time) bool {
	return now.Sub(doc.Timestamp) <= freshnessWindow
}
