package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const defaultPoll = 250 * time.Millisecond

// TailOptions controls which log entries Tail emits.
type TailOptions struct {
	// Limit is the number of matching entries printed from the existing file.
	// Zero skips history and only follows.
	Limit  int
	Follow bool
	Poll   time.Duration
	Filter Filter
}

// Tail emits the last opts.Limit entries of the JSON log at path that match
// opts.Filter. With Follow set it keeps polling for appended entries until ctx
// is done. A missing log file is treated as empty.
func Tail(ctx context.Context, path string, opts TailOptions, emit func(Entry) error) error {
	if opts.Poll <= 0 {
		opts.Poll = defaultPoll
	}

	entries, offset, err := readLastEntries(path, opts.Limit, opts.Filter)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := emit(e); err != nil {
			return err
		}
	}
	if !opts.Follow {
		return nil
	}
	return follow(ctx, path, offset, opts, emit)
}

func readLastEntries(path string, limit int, filter Filter) ([]Entry, int64, error) {
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

	ring := make([]Entry, limit)
	count, idx := 0, 0
	offset, err := scanEntries(file, filter, func(e Entry) {
		ring[idx] = e
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	entries := make([]Entry, count)
	if count == limit {
		for i := 0; i < count; i++ {
			entries[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(entries, ring[:count])
	}
	return entries, offset, nil
}

func follow(ctx context.Context, path string, offset int64, opts TailOptions, emit func(Entry) error) error {
	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		var batch []Entry
		next, err := readFrom(path, offset, opts.Filter, func(e Entry) { batch = append(batch, e) })
		if err != nil {
			return err
		}
		offset = next
		for _, e := range batch {
			if err := emit(e); err != nil {
				return err
			}
		}
	}
}

// readFrom scans complete lines after offset. A truncated or rotated file
// restarts from the beginning.
func readFrom(path string, offset int64, filter Filter, fn func(Entry)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	consumed, err := scanEntries(file, filter, fn)
	if err != nil {
		return offset, err
	}
	return offset + consumed, nil
}

// scanEntries reads newline-terminated records from r and returns the number
// of bytes consumed. A trailing partial line is left for the next poll.
func scanEntries(r io.Reader, filter Filter, fn func(Entry)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		entry, ok := ParseEntry(line)
		if ok && filter.Match(entry) {
			fn(entry)
		}
	}
}
