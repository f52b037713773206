package status

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

var (
	secretDetector     *detect.Detector
	secretDetectorOnce sync.Once
)

func getSecretDetector() *detect.Detector {
	secretDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		secretDetector = d
	})
	return secretDetector
}

// ScanForSecrets runs an advisory gitleaks pass over every changed file in
// worktreePath and returns a human-readable warning when something looks
// like a secret. It never blocks finish: a detected finding is attached to
// the Status document as Warning, not returned as an error.
func ScanForSecrets(worktreePath string, changedFiles []string) string {
	d := getSecretDetector()
	if d == nil {
		return ""
	}

	var flagged []string
	for _, rel := range changedFiles {
		data, err := os.ReadFile(filepath.Join(worktreePath, rel))
		if err != nil {
			continue
		}
		if findings := d.DetectString(string(data)); len(findings) > 0 {
			flagged = append(flagged, rel)
		}
	}
	if len(flagged) == 0 {
		return ""
	}
	if len(flagged) == 1 {
		return fmt.Sprintf("possible secret detected in %s, review before finishing", flagged[0])
	}
	return fmt.Sprintf("possible secrets detected in %d changed files, review before finishing", len(flagged))
}
