package fetch

import (
	"bytes"
	"regexp"
	"strconv"
)

// progressLine matches the transfer progress lines the aws CLI
// prints, e.g.:
//
//	Completed 5.1 KiB/8.8 GiB (12.0 MiB/s) with 1 file(s) remaining
var progressLine = regexp.MustCompile(`^Completed (\d+(?:\.\d+)?) (\w+)/(\d+(?:\.\d+)?) (\w+) \((.+)\) with\s`)

func unitToBytes(value float64, unit string) float64 {
	switch unit {
	case "KiB":
		return value * 1024
	case "MiB":
		return value * 1024 * 1024
	case "GiB":
		return value * 1024 * 1024 * 1024
	default:
		return value
	}
}

// parseProgressLine extracts fractional progress and a rate string
// from one CLI output line. ok is false for lines that carry no
// progress information.
func parseProgressLine(line string) (fraction float64, rate string, ok bool) {
	m := progressLine.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	completed, err1 := strconv.ParseFloat(m[1], 64)
	total, err2 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil {
		return 0, "", false
	}
	completedBytes := unitToBytes(completed, m[2])
	totalBytes := unitToBytes(total, m[4])
	if totalBytes == 0 {
		return 0, "", false
	}
	fraction = completedBytes / totalBytes
	if fraction > 1 {
		fraction = 1
	}
	return fraction, m[5], true
}

// lineFilter is an io.Writer that splits command output into lines
// and forwards any progress information found to a ProgressFunc. The
// CLI redraws its progress line with carriage returns, so both \r and
// \n terminate a line.
type lineFilter struct {
	progress ProgressFunc
	buf      []byte
}

func newLineFilter(progress ProgressFunc) *lineFilter {
	f := &lineFilter{progress: progress}
	// Initial event so a progress bar gets shown immediately.
	if progress != nil {
		progress(0, "")
	}
	return f
}

func (f *lineFilter) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	for {
		idx := bytes.IndexAny(f.buf, "\r\n")
		if idx < 0 {
			break
		}
		line := string(f.buf[:idx])
		f.buf = f.buf[idx+1:]
		if fraction, rate, ok := parseProgressLine(line); ok && f.progress != nil {
			f.progress(fraction, rate)
		}
	}
	return len(p), nil
}
