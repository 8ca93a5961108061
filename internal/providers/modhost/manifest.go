package modhost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type TransportType string

const (
	TransportHTTP  TransportType = "http"
	TransportSSE   TransportType = "sse"
	TransportStdio TransportType = "stdio"
)

// ManifestFile is the descriptor every installed mod ships at its root.
const ManifestFile = "mod.json"

// Manifest describes how to run one installed mod. A mod is either a local
// process (Command) or a remote endpoint (URL).
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`

	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// Transport overrides the inferred type, "sse" forces the legacy
	// streaming transport for endpoints that do not speak streamable HTTP.
	Transport string `json:"transport,omitempty"`
}

func (m *Manifest) GetTransport() (TransportType, error) {
	if m.Transport != "" {
		switch TransportType(m.Transport) {
		case TransportHTTP, TransportSSE, TransportStdio:
			return TransportType(m.Transport), nil
		default:
			return "", fmt.Errorf("invalid manifest: unknown transport %q", m.Transport)
		}
	}
	if m.URL != "" {
		return TransportHTTP, nil
	}
	if m.Command != "" {
		return TransportStdio, nil
	}
	return "", fmt.Errorf("invalid manifest: neither url nor command provided")
}

// ReadManifest loads mod.json from an installed mod's directory.
func ReadManifest(modsDir, modID string) (*Manifest, error) {
	path := filepath.Join(modsDir, modID, ManifestFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("mod %q has no %s", modID, ManifestFile)
		}
		return nil, fmt.Errorf("failed to read manifest for %q: %w", modID, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest for %q: %w", modID, err)
	}

	return &m, nil
}
