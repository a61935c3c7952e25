package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// journalEntry is one queued payload with its enqueue time.
type journalEntry struct {
	Queued  time.Time       `json:"queued"`
	Payload json.RawMessage `json:"payload"`
}

// Journal is a durable store-and-forward queue for outbound event payloads.
// Every payload is appended to a JSONL file before the first publish attempt
// and leaves the journal only after the broker acks it, so a crash or a
// broker outage never loses an event.
type Journal struct {
	mu      sync.Mutex
	path    string
	pending []journalEntry
}

// OpenJournal loads any payloads a previous run left queued at path. A
// missing file starts an empty journal.
func OpenJournal(path string) (*Journal, error) {
	j := &Journal{path: path}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return j, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e journalEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			log.Warn().Err(err).Msg("Skipping invalid JSON line in journal")
			continue
		}
		j.pending = append(j.pending, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading journal: %w", err)
	}

	if len(j.pending) > 0 {
		log.Info().Str("path", path).Int("count", len(j.pending)).Msg("Recovered queued events from journal")
	}
	return j, nil
}

// Append queues a payload, persisting it before any publish attempt.
func (j *Journal) Append(payload []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e := journalEntry{
		Queued:  time.Now().UTC(),
		Payload: json.RawMessage(append([]byte(nil), payload...)),
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}

	file, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		file.Close()
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	j.pending = append(j.pending, e)
	return nil
}

// Flush publishes queued payloads in order. It stops at the first failure,
// acks the delivered prefix, and leaves the rest queued for the next call,
// so event order is preserved across outages.
func (j *Journal) Flush(publish func([]byte) error) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	sent := 0
	var pubErr error
	for _, e := range j.pending {
		if err := publish(e.Payload); err != nil {
			pubErr = err
			break
		}
		sent++
	}

	if sent > 0 {
		j.pending = append([]journalEntry(nil), j.pending[sent:]...)
		if err := j.rewrite(); err != nil {
			return sent, err
		}
	}
	return sent, pubErr
}

// rewrite persists the current pending set with an atomic replace.
func (j *Journal) rewrite() error {
	tmpPath := j.path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp journal file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, e := range j.pending {
		if err := encoder.Encode(e); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode journal entry: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, j.path); err != nil {
		return fmt.Errorf("failed to rename journal file: %w", err)
	}
	return nil
}

// Len returns the number of queued payloads.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// PendingPayloads returns copies of the queued payloads in order.
func (j *Journal) PendingPayloads() [][]byte {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([][]byte, len(j.pending))
	for i, e := range j.pending {
		out[i] = append([]byte(nil), e.Payload...)
	}
	return out
}
