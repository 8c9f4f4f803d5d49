package cli

import (
	"fmt"
	"math"
)

// FormatSeconds formats an audio duration: 850ms, 3.2s, 1m5.0s.
func FormatSeconds(secs float64) string {
	if secs < 1 {
		return fmt.Sprintf("%dms", int(math.Round(secs*1000)))
	}
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	return fmt.Sprintf("%dm%.1fs", mins, secs-float64(mins*60))
}

// FormatBytes formats bytes to human readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatPercent formats a probability as a percentage with two decimals.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

// FormatProb formats a probability with four decimals.
func FormatProb(p float64) string {
	return fmt.Sprintf("%.4f", p)
}
