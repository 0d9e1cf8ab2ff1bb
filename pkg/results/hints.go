package results

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adebench/adebench/pkg/logger"
)

// DurationHints maps task ids to their longest observed runtime from a
// previous run, used to order tasks longest-first inside a trial.
type DurationHints map[string]int64

// LoadDurationHints reads the results.json in the given directory and
// returns each task's maximum runtime across attempts. A missing or
// unreadable file yields empty hints rather than an error: hints only
// improve scheduling, they are never required.
func LoadDurationHints(ctx context.Context, dir string) DurationHints {
	hints := DurationHints{}
	if dir == "" {
		return hints
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		logger.G(ctx).WithField("dir", dir).Debug("no duration hints available")
		return hints
	}

	var doc struct {
		Results []struct {
			TaskID    string `json:"task_id"`
			RuntimeMS int64  `json:"runtime_ms"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.G(ctx).WithField("dir", dir).WithError(err).Warn("ignoring malformed duration hints")
		return hints
	}

	for _, r := range doc.Results {
		if r.TaskID == "" {
			continue
		}
		if r.RuntimeMS > hints[r.TaskID] {
			hints[r.TaskID] = r.RuntimeMS
		}
	}
	return hints
}
