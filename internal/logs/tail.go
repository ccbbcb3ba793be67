package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"lipsync/internal/logging"
)

const defaultPollInterval = 250 * time.Millisecond

// Filter selects lines by run correlation fields. Empty fields match anything.
type Filter struct {
	RunID string
	Step  string
}

func (f Filter) empty() bool {
	return f.RunID == "" && f.Step == ""
}

// Match reports whether line passes the filter. Lines that are not JSON
// objects only pass an empty filter.
func (f Filter) Match(line string) bool {
	if f.empty() {
		return true
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return false
	}
	if f.RunID != "" && fieldString(fields, logging.FieldRunID) != f.RunID {
		return false
	}
	if f.Step != "" && fieldString(fields, logging.FieldStep) != f.Step {
		return false
	}
	return true
}

func fieldString(fields map[string]any, key string) string {
	value, ok := fields[key].(string)
	if !ok {
		return ""
	}
	return value
}

// Last returns up to limit matching lines from the end of path and the offset
// just past them. A missing file yields no lines and offset 0.
func Last(path string, limit int, filter Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	if limit <= 0 {
		return nil, info.Size(), nil
	}

	scanner := newScanner(file)
	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if !filter.Match(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// Follow emits matching lines appended after offset until ctx ends. When path
// is replaced by a different file, or shrinks below offset, it is read from
// the start.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, filter Filter, emit func(string)) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seen os.FileInfo
	for {
		next, info, err := readFrom(path, offset, seen, filter, emit)
		if err != nil {
			return err
		}
		offset, seen = next, info

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// readFrom emits complete lines after offset. seen is the file read on the
// previous poll, nil when none was.
func readFrom(path string, offset int64, seen os.FileInfo, filter Filter, emit func(string)) (int64, os.FileInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil, nil
		}
		return offset, seen, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, seen, fmt.Errorf("stat log file: %w", err)
	}
	if (seen != nil && !os.SameFile(seen, info)) || info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, info, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, info, fmt.Errorf("seek log file: %w", err)
	}

	// Only complete lines are consumed; a partial trailing write is picked up
	// on the next poll.
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, info, nil
			}
			return offset, info, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		line = line[:len(line)-1]
		if filter.Match(line) {
			emit(line)
		}
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
