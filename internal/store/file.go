package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps every conversation in one human-diffable JSON file, keyed
// by conversation id. Writes rewrite the whole file through a temp file and
// rename so a crash mid-write cannot truncate the store.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) LoadAll(_ context.Context) (map[string]Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) Get(_ context.Context, id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadLocked()
	if err != nil {
		return Conversation{}, err
	}
	conv, ok := all[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return conv, nil
}

func (s *FileStore) Save(_ context.Context, id string, history []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadLocked()
	if err != nil {
		return err
	}
	all[id] = Conversation{
		ID:        id,
		Timestamp: s.now().Format(TimeLayout),
		History:   cloneHistory(history),
	}
	return s.writeLocked(all)
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadLocked()
	if err != nil {
		return err
	}
	if _, ok := all[id]; !ok {
		return nil
	}
	delete(all, id)
	return s.writeLocked(all)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) loadLocked() (map[string]Conversation, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Conversation{}, nil
		}
		return nil, fmt.Errorf("read conversation store: %w", err)
	}

	all := map[string]Conversation{}
	if err := json.Unmarshal(data, &all); err != nil {
		// Quarantine the unreadable file and start empty rather than
		// refusing to serve any conversation at all.
		quarantine := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
		if renameErr := os.Rename(s.path, quarantine); renameErr != nil {
			return nil, fmt.Errorf("conversation store corrupt and quarantine failed: %w", renameErr)
		}
		log.Printf("conversation store corrupt, moved to %s: %v", quarantine, err)
		return map[string]Conversation{}, nil
	}

	for id, conv := range all {
		conv.ID = id
		all[id] = conv
	}
	return all, nil
}

func (s *FileStore) writeLocked(all map[string]Conversation) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace conversation store: %w", err)
	}
	return nil
}
