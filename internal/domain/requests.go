package domain

import "slices"

// ChatRequest is the body of a single-turn chat call.
type ChatRequest struct {
	Message    string `json:"message" validate:"required"`
	Model      string `json:"model" validate:"required"`
	Collection string `json:"collection" validate:"required"`
	ChunkSize  int    `json:"chunk_size" validate:"min=0"`
}

// ComparisonRequest asks the backend to answer Question with every
// candidate model and have JudgeModel score the answers. It is built fresh
// for every run and never persisted.
type ComparisonRequest struct {
	Question                string   `json:"message" validate:"required"`
	CandidateModels         []string `json:"models" validate:"required,min=1,unique,dive,required"`
	Collection              string   `json:"collection" validate:"required"`
	JudgeModel              string   `json:"judge_model" validate:"required"`
	IncludeRetrievalMetrics bool     `json:"include_retrieval_metrics"`
	IncludeRagasMetrics     bool     `json:"include_ragas_metrics"`
}

// JudgeIsCandidate reports whether the judge would score itself.
func (r ComparisonRequest) JudgeIsCandidate() bool {
	return slices.Contains(r.CandidateModels, r.JudgeModel)
}

// CreateCollectionRequest creates a new document collection.
type CreateCollectionRequest struct {
	Name string `json:"name" validate:"required"`
}

// ProcessDocumentsRequest starts server-side ingestion of a directory.
type ProcessDocumentsRequest struct {
	Directory  string `json:"directory" validate:"required"`
	ChunkSize  int    `json:"chunk_size" validate:"min=256,max=4096"`
	Collection string `json:"collection,omitempty"`
}

// UploadDocumentsRequest uploads local files for ingestion.
type UploadDocumentsRequest struct {
	Files      []string `validate:"required,min=1,dive,required"`
	Collection string   `validate:"required"`
	ChunkSize  int      `validate:"min=256,max=4096"`
}

// ComparisonResult is the normalized outcome of one comparison run. It
// replaces the previous result wholesale.
type ComparisonResult struct {
	// Models is the panel order: requested candidates first, then any
	// extra models the backend returned, sorted.
	Models []string

	// PerModel maps a model to its answer text.
	PerModel map[string]string

	// PerModelMetrics maps a model to its normalized metrics. Models
	// without a metrics payload are absent.
	PerModelMetrics map[string]MetricSet

	// Retrieval is nil when the backend sent no retrieval metrics.
	Retrieval *RetrievalMetrics
}

// ModelPanel is the per-model view of a comparison result.
type ModelPanel struct {
	Model   string
	Answer  string
	Metrics MetricSet
}

// HasMetrics reports whether the panel has a usable metrics block, that is
// a payload without an error.
func (p ModelPanel) HasMetrics() bool { return p.Metrics.Present && p.Metrics.Error == "" }

// Panels returns one panel per model in display order.
func (r *ComparisonResult) Panels() []ModelPanel {
	if r == nil {
		return nil
	}
	panels := make([]ModelPanel, 0, len(r.Models))
	for _, m := range r.Models {
		panels = append(panels, ModelPanel{
			Model:   m,
			Answer:  r.PerModel[m],
			Metrics: r.PerModelMetrics[m],
		})
	}
	return panels
}

// HasRagas reports whether any model carries RAGAS-origin metrics.
func (r *ComparisonResult) HasRagas() bool {
	if r == nil {
		return false
	}
	for _, ms := range r.PerModelMetrics {
		if ms.HasRagas() {
			return true
		}
	}
	return false
}
