package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Line is one log line with the logrus level pulled out of it.
type Line struct {
	Level string
	Text  string
}

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file is not an error.
func Read(path string, maxLines int) ([]Line, error) {
	raw, err := readRaw(path, maxLines)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	lines := make([]Line, len(raw))
	for i, text := range raw {
		lines[i] = Parse(text)
	}
	return lines, nil
}

// Parse extracts the level from a logrus text-formatted line. Lines without a
// level field keep an empty Level.
func Parse(text string) Line {
	return Line{Level: field(text, "level"), Text: text}
}

// field returns the value of key=value in a logfmt line, unquoting it when
// needed.
func field(text, key string) string {
	prefix := key + "="
	idx := 0
	for {
		pos := strings.Index(text[idx:], prefix)
		if pos < 0 {
			return ""
		}
		pos += idx
		if pos == 0 || text[pos-1] == ' ' {
			value := text[pos+len(prefix):]
			if strings.HasPrefix(value, `"`) {
				if end := strings.Index(value[1:], `"`); end >= 0 {
					return value[1 : end+1]
				}
				return strings.TrimPrefix(value, `"`)
			}
			if end := strings.IndexByte(value, ' '); end >= 0 {
				return value[:end]
			}
			return value
		}
		idx = pos + len(prefix)
	}
}

func readRaw(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var all []string
		for scanner.Scan() {
			all = append(all, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return all, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}
