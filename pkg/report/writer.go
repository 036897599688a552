package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteDaily writes the daily summary to <dir>/zendesk_summary_YYYYMMDD.md
// and, when htmlBody is non-empty, a matching .html file. It returns the
// paths written.
func WriteDaily(dir, markdown, htmlBody string, now time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}

	stamp := now.Format("20060102")
	var paths []string

	mdPath := filepath.Join(dir, fmt.Sprintf("zendesk_summary_%s.md", stamp))
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("writing daily summary: %w", err)
	}
	paths = append(paths, mdPath)

	if htmlBody != "" {
		htmlPath := filepath.Join(dir, fmt.Sprintf("zendesk_summary_%s.html", stamp))
		if err := os.WriteFile(htmlPath, []byte(htmlBody), 0o644); err != nil {
			return nil, fmt.Errorf("writing daily summary html: %w", err)
		}
		paths = append(paths, htmlPath)
	}
	return paths, nil
}

// WriteWeekly writes one agent's weekly report to
// <dir>/<Agent_Name>_weekly_YYYY-MM-DD.html and returns the path.
func WriteWeekly(dir, agentName, htmlBody string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	name := fmt.Sprintf("%s_weekly_%s.html", sanitizeName(agentName), now.Format("2006-01-02"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(htmlBody), 0o644); err != nil {
		return "", fmt.Errorf("writing weekly report for %s: %w", agentName, err)
	}
	return path, nil
}

func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "agent"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
