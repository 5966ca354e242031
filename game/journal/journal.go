package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/wricardo/mcp-training/mergegame/game/service"
)

const (
	filePrefix = "events"
	fileSuffix = ".jsonl.zst"
	hourLayout = "2006-01-02-15"
)

// Entry is one journal line
type Entry struct {
	SessionID string            `json:"session_id"`
	Event     service.GameEvent `json:"event"`
}

// Journal appends game events to hourly zstd-compressed JSONL files.
// It implements service.EventSink.
type Journal struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// New creates a journal writing under dir. Files are opened lazily.
func New(dir string) *Journal {
	return &Journal{
		dir: dir,
		now: time.Now,
	}
}

// Record writes one line per event
func (j *Journal) Record(sessionID string, events []service.GameEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	hour := j.now().UTC().Format(hourLayout)
	if hour != j.curHour {
		if err := j.rotateLocked(hour); err != nil {
			return err
		}
	}

	for _, ev := range events {
		b, err := json.Marshal(Entry{SessionID: sessionID, Event: ev})
		if err != nil {
			return err
		}
		if _, err := j.w.Write(b); err != nil {
			return err
		}
		if err := j.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := j.w.Flush(); err != nil {
		return err
	}
	// Complete lines become visible to readers of the open file.
	return j.enc.Flush()
}

// Close flushes and closes the current file
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *Journal) rotateLocked(hour string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	path := j.pathForHour(hour)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 64*1024)
	j.curHour = hour
	return nil
}

func (j *Journal) closeLocked() error {
	var err error
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.enc != nil {
		err = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		_ = j.f.Close()
		j.f = nil
	}
	j.w = nil
	j.curHour = ""
	return err
}

func (j *Journal) pathForHour(hour string) string {
	return filepath.Join(j.dir, fmt.Sprintf("%s-%s%s", filePrefix, hour, fileSuffix))
}

// ListFiles returns the journal files in dir, oldest first
func ListFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix+"-") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, filepath.Join(dir, name))
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile decodes every entry of one journal file
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var entries []Entry
	line := 0
	for sc.Scan() {
		line++
		var entry Entry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return entries, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return entries, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return entries, nil
}

// ReadSession returns the entries of one session across every file in dir.
// An empty sessionID returns all entries.
func ReadSession(dir, sessionID string) ([]Entry, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, path := range files {
		entries, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if sessionID == "" || strings.EqualFold(e.SessionID, sessionID) {
				out = append(out, e)
			}
		}
	}
	return out, nil
}
