// Package settings carries the user-level configuration the server needs at
// startup. Values are opaque here: they are stored and forwarded unchanged.
package settings

import (
	"context"
	"errors"
	"sync"

	"vibecraft.ai/internal/protocol"
)

type Settings struct {
	ProjectDirectory string `json:"project_directory" yaml:"project_directory"`
	MistralAPIKey    string `json:"mistral_api_key" yaml:"mistral_api_key"`
}

// Store persists Settings between runs.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

var ErrClosed = errors.New("settings store closed")

// Merge returns s with every non-empty field of override applied.
func (s Settings) Merge(override Settings) Settings {
	if override.ProjectDirectory != "" {
		s.ProjectDirectory = override.ProjectDirectory
	}
	if override.MistralAPIKey != "" {
		s.MistralAPIKey = override.MistralAPIKey
	}
	return s
}

// StartupActions lists the actions that hand s to the server, in the order
// they should be sent. Empty fields produce nothing.
func StartupActions(s Settings) []protocol.PlayerAction {
	var out []protocol.PlayerAction
	if s.ProjectDirectory != "" {
		out = append(out, protocol.SetProjectDirectory{Path: s.ProjectDirectory})
	}
	if s.MistralAPIKey != "" {
		out = append(out, protocol.SetMistralApiKey{Key: s.MistralAPIKey})
	}
	return out
}

// MemoryStore keeps settings for the life of the process.
type MemoryStore struct {
	mu sync.Mutex
	s  Settings
}

func NewMemoryStore(initial Settings) *MemoryStore {
	return &MemoryStore{s: initial}
}

func (m *MemoryStore) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.s = s
	m.mu.Unlock()
	return nil
}
