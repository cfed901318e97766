package domain

import "slices"

// Sentinel entries substituted into a catalog when it could not be loaded.
// They keep the selector populated with something readable and are never
// selectable.
const (
	// SentinelModelsInvalid replaces the model list when the backend
	// responded without a models array.
	SentinelModelsInvalid = "Could not load models"

	// SentinelConnectionError replaces the model list when the request
	// itself failed.
	SentinelConnectionError = "Connection error"

	// SentinelCollectionsUnavailable replaces the collection list when it
	// could not be loaded.
	SentinelCollectionsUnavailable = "Could not load collections"
)

// ModelCatalog is the ordered set of model names offered by the backend.
// It is loaded once per session and is immutable afterwards.
type ModelCatalog struct {
	// Models lists the model names in backend order.
	Models []string

	// DefaultModel is the backend's suggested model, empty when absent.
	DefaultModel string

	// Failed reports that Models holds a sentinel instead of real entries.
	Failed bool

	// Loaded reports that a load attempt has completed.
	Loaded bool
}

// Contains reports whether model is a selectable catalog entry.
func (c ModelCatalog) Contains(model string) bool {
	return !c.Failed && slices.Contains(c.Models, model)
}

// Initial returns the model that should be active when the session starts:
// the default model when present, otherwise the first entry.
func (c ModelCatalog) Initial() (string, bool) {
	if c.Failed {
		return "", false
	}
	if c.DefaultModel != "" {
		return c.DefaultModel, true
	}
	if len(c.Models) > 0 {
		return c.Models[0], true
	}
	return "", false
}

// FailedModelCatalog builds a catalog holding a single sentinel entry.
func FailedModelCatalog(sentinel string) ModelCatalog {
	return ModelCatalog{Models: []string{sentinel}, Failed: true, Loaded: true}
}

// CollectionCatalog is the ordered set of document collections.
// Current may be empty, meaning no collection is selected yet.
type CollectionCatalog struct {
	Collections []string
	Current     string
	Failed      bool
	Loaded      bool
}

// Contains reports whether name is a selectable catalog entry.
func (c CollectionCatalog) Contains(name string) bool {
	return !c.Failed && slices.Contains(c.Collections, name)
}

// FailedCollectionCatalog builds a catalog holding a single sentinel entry.
func FailedCollectionCatalog() CollectionCatalog {
	return CollectionCatalog{
		Collections: []string{SentinelCollectionsUnavailable},
		Failed:      true,
		Loaded:      true,
	}
}

// IsSentinel reports whether name is one of the catalog failure sentinels.
func IsSentinel(name string) bool {
	switch name {
	case SentinelModelsInvalid, SentinelConnectionError, SentinelCollectionsUnavailable:
		return true
	}
	return false
}

// ActiveSelection is the chat-mode model and collection pair.
type ActiveSelection struct {
	ChatModel  string `json:"chatModel"`
	Collection string `json:"collection"`
}
