package core

import "encoding/json"

const (
	BotName       = "ModBot"
	BotUserAgent  = "ModBot/0.1"
	RepositoryURL = "https://github.com/sandevgo/modbot"
	BotVersion    = "0.1.0"
)

// ModKeyPrefix namespaces mod identifiers inside search result maps.
const ModKeyPrefix = "mod/"

// ModKey returns the namespaced key a mod descriptor is filed under.
func ModKey(modID string) string {
	return ModKeyPrefix + modID
}

// ModInfo is a mod descriptor as the registry returns it.
type ModInfo struct {
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`
	Author      string `json:"author,omitempty"`
}

// SearchResult is one registry search response: identifiers in catalog
// order plus descriptors keyed by ModKey(id). Produced per call, consumed
// immediately for display, never cached by the consumer.
type SearchResult struct {
	ModIDs []string           `json:"modIds"`
	Mods   map[string]ModInfo `json:"res"`
}

// Describe looks up the description for a mod id via its namespaced key.
func (r *SearchResult) Describe(modID string) string {
	return r.Mods[ModKey(modID)].Description
}

// Tool is a callable capability contributed by a loaded mod.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}
