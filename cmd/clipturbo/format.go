package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"clipturbo/internal/api"
)

func formatProgress(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct)
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// historyLine renders the archive path followed by per-state counts, e.g.
// "/state/history.db (3 completed, 1 failed)".
func historyLine(status *api.DaemonStatus) string {
	if len(status.History) == 0 {
		return status.HistoryDBPath
	}
	states := make([]string, 0, len(status.History))
	for state := range status.History {
		states = append(states, state)
	}
	sort.Strings(states)
	parts := make([]string, 0, len(states))
	for _, state := range states {
		parts = append(parts, fmt.Sprintf("%d %s", status.History[state], state))
	}
	return fmt.Sprintf("%s (%s)", status.HistoryDBPath, strings.Join(parts, ", "))
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
