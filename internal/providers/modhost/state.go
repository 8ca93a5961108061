package modhost

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sandevgo/modbot/pkg/log"
)

// State is the persisted set of mods that should be loaded. Editing the
// file by hand is supported, the host picks changes up through Watch.
type State struct {
	Loaded []string `json:"loaded"`
}

func (s *State) Has(modID string) bool {
	for _, id := range s.Loaded {
		if id == modID {
			return true
		}
	}
	return false
}

// With returns a copy of the state with modID present.
func (s *State) With(modID string) *State {
	if s.Has(modID) {
		return &State{Loaded: append([]string(nil), s.Loaded...)}
	}
	loaded := make([]string, 0, len(s.Loaded)+1)
	loaded = append(loaded, s.Loaded...)
	loaded = append(loaded, modID)
	return &State{Loaded: loaded}
}

// Without returns a copy of the state with modID absent.
func (s *State) Without(modID string) *State {
	loaded := make([]string, 0, len(s.Loaded))
	for _, id := range s.Loaded {
		if id != modID {
			loaded = append(loaded, id)
		}
	}
	return &State{Loaded: loaded}
}

type Storage interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
	Watch(ctx context.Context) (<-chan State, error)
}

var _ Storage = (*FileStorage)(nil)

type FileStorage struct {
	path string
	mu   sync.RWMutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
	}
}

// Load reads the state file. A missing file is replaced with an empty one.
func (c *FileStorage) Load(ctx context.Context) (*State, error) {
	c.mu.RLock()
	data, err := os.ReadFile(c.path)
	c.mu.RUnlock()

	if err != nil {
		if os.IsNotExist(err) {
			dir := filepath.Dir(c.path)
			if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
				return nil, fmt.Errorf("state directory does not exist: %w", err)
			}

			log.FromCtx(ctx).Info().Msg("loaded.json not found, creating empty state")

			state := &State{}
			if err = c.Save(ctx, state); err != nil {
				return nil, fmt.Errorf("failed to create empty state: %w", err)
			}
			return state, nil
		}
		return nil, fmt.Errorf("failed to read mod state: %w", err)
	}

	state := &State{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse mod state: %w", err)
	}

	return state, nil
}

func (c *FileStorage) Save(ctx context.Context, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	return nil
}

// Watch polls the state file and emits its content whenever the mtime moves.
func (c *FileStorage) Watch(ctx context.Context) (<-chan State, error) {
	updates := make(chan State)

	info, err := os.Stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat state file: %w", err)
	}
	lastMod := info.ModTime()

	go func() {
		defer close(updates)

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.RLock()
				data, err := os.ReadFile(c.path)
				c.mu.RUnlock()

				if err != nil {
					lastMod = time.Time{}
					continue
				}

				info, err = os.Stat(c.path)
				if err != nil {
					lastMod = time.Time{}
					continue
				}

				if !info.ModTime().After(lastMod) {
					continue
				}

				var state State
				if err := json.Unmarshal(data, &state); err != nil {
					log.FromCtx(ctx).Error().Err(err).Msg("failed to parse mod state")
					continue
				}

				lastMod = info.ModTime()

				select {
				case updates <- state:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}
