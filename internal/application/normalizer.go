package application

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

// Keys that identify the label-free retrieval generation.
var labelFreeKeys = []string{
	"retrieval_time_ms",
	"score_at_1",
	"mean_score",
	"accept_rate_at_threshold",
	"qd_mean",
	"docdoc_coherence",
	"diversity",
	"unique_sources",
}

// acronyms keep their capitalization in metric labels.
var acronyms = map[string]string{
	"mrr":  "MRR",
	"qd":   "QD",
	"llm":  "LLM",
	"rag":  "RAG",
	"bleu": "BLEU",
}

// Normalizer maps the backend's loosely typed comparison payloads into
// stable domain views. It never fails: missing or malformed fields become
// unavailable values.
//
// Normalizer is stateless and safe for concurrent use.
type Normalizer struct{}

// NewNormalizer returns a Normalizer.
func NewNormalizer() *Normalizer { return &Normalizer{} }

// NormalizeComparison builds the ComparisonResult for a finished run.
// Panels follow the requested candidate order; models the backend added
// on its own follow, sorted by name.
func (n *Normalizer) NormalizeComparison(req domain.ComparisonRequest, resp *ports.CompareResponse) *domain.ComparisonResult {
	result := &domain.ComparisonResult{
		PerModel:        make(map[string]string),
		PerModelMetrics: make(map[string]domain.MetricSet),
	}
	if resp == nil {
		resp = &ports.CompareResponse{}
	}

	seen := make(map[string]struct{})
	for _, m := range req.CandidateModels {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		result.Models = append(result.Models, m)
	}

	var extras []string
	addExtra := func(m string) {
		if _, ok := seen[m]; ok {
			return
		}
		seen[m] = struct{}{}
		extras = append(extras, m)
	}
	for m := range resp.Results {
		addExtra(m)
	}
	for m := range resp.Metrics {
		addExtra(m)
	}
	sort.Strings(extras)
	result.Models = append(result.Models, extras...)

	for _, m := range result.Models {
		if raw, ok := resp.Results[m]; ok {
			result.PerModel[m] = answerText(raw)
		}
		if raw, ok := resp.Metrics[m]; ok {
			result.PerModelMetrics[m] = n.NormalizeMetrics(raw)
		}
	}

	result.Retrieval = n.NormalizeRetrieval(resp.RetrievalMetrics)
	return result
}

// NormalizeMetrics converts one model's metric payload into a MetricSet.
// Bare numbers become score entries, objects become structured entries,
// and anything else is kept as an unavailable entry. The reserved
// overall_score and error keys are lifted out of the entry list.
func (n *Normalizer) NormalizeMetrics(raw json.RawMessage) domain.MetricSet {
	v := parseRaw(raw)
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return domain.MetricSet{}
	case v.Type == gjson.String:
		// Some backends send a bare error string instead of an object.
		return domain.MetricSet{Present: true, Error: v.String()}
	case !v.IsObject():
		return domain.MetricSet{Present: true}
	}

	set := domain.MetricSet{Present: true}
	title := cases.Title(language.English)

	v.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		switch k {
		case domain.OverallScoreKey:
			if value.IsObject() {
				set.Overall = number(value.Get("score"))
			} else {
				set.Overall = number(value)
			}
			return true
		case domain.ErrorKey:
			if value.Type != gjson.Null {
				set.Error = textOf(value)
			}
			return true
		}

		entry := domain.MetricEntry{
			Key:    k,
			Label:  metricLabel(title, k),
			Origin: domain.OriginOf(k),
		}
		if value.IsObject() {
			entry.Structured = true
			entry.Score = number(value.Get("score"))
			if p := value.Get("passing"); p.IsBool() {
				b := p.Bool()
				entry.Passing = &b
			}
			if f := value.Get("feedback"); f.Exists() && f.Type != gjson.Null {
				entry.Feedback = textOf(f)
			}
		} else {
			entry.Score = number(value)
		}
		set.Entries = append(set.Entries, entry)
		return true
	})
	return set
}

// NormalizeRetrieval converts the retrieval-metrics payload, detecting its
// generation by field presence. It returns nil when nothing was sent.
func (n *Normalizer) NormalizeRetrieval(raw json.RawMessage) *domain.RetrievalMetrics {
	v := parseRaw(raw)
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return nil
	case v.Type == gjson.String:
		return &domain.RetrievalMetrics{Shape: domain.RetrievalShapeError, Error: v.String()}
	case !v.IsObject():
		return nil
	}

	rm := &domain.RetrievalMetrics{
		Query:          v.Get("query").String(),
		RetrievedCount: number(v.Get("retrieved_count")),
	}
	if md := v.Get("metadata"); md.IsObject() {
		if m, ok := md.Value().(map[string]any); ok {
			rm.Metadata = m
		}
	}

	if e := v.Get(domain.ErrorKey); e.Exists() && e.Type != gjson.Null {
		rm.Shape = domain.RetrievalShapeError
		rm.Error = textOf(e)
		return rm
	}

	rm.HitRate = number(v.Get("hit_rate"))
	rm.MRR = number(v.Get("mrr"))
	rm.Interpretation = v.Get("interpretation").String()

	rm.RetrievalTimeMs = number(v.Get("retrieval_time_ms"))
	rm.ScoreAt1 = number(v.Get("score_at_1"))
	rm.MeanScore = number(v.Get("mean_score"))
	rm.AcceptRateAtThreshold = number(v.Get("accept_rate_at_threshold"))
	rm.QDMean = number(v.Get("qd_mean"))
	rm.DocDocCoherence = number(v.Get("docdoc_coherence"))
	rm.Diversity = number(v.Get("diversity"))
	rm.UniqueSources = number(v.Get("unique_sources"))

	switch {
	case v.Get("hit_rate").Exists() || v.Get("mrr").Exists():
		rm.Shape = domain.RetrievalShapeLegacy
	case hasAny(v, labelFreeKeys):
		rm.Shape = domain.RetrievalShapeLabelFree
	default:
		rm.Shape = domain.RetrievalShapeUnknown
	}
	return rm
}

// metricLabel humanizes a snake_case key, dropping the RAGAS prefix since
// RAGAS entries are grouped under their own heading.
func metricLabel(title cases.Caser, key string) string {
	key = strings.TrimPrefix(key, domain.RagasPrefix)
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		if a, ok := acronyms[strings.ToLower(w)]; ok {
			words[i] = a
			continue
		}
		words[i] = title.String(w)
	}
	if len(words) == 0 {
		return key
	}
	return strings.Join(words, " ")
}

func parseRaw(raw json.RawMessage) gjson.Result {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

// answerText renders a per-model answer. Non-string values are shown as
// their raw JSON so nothing the backend sent is hidden.
func answerText(raw json.RawMessage) string {
	v := parseRaw(raw)
	switch v.Type {
	case gjson.String:
		return v.String()
	case gjson.Null:
		return ""
	default:
		if !v.Exists() {
			return strings.TrimSpace(string(raw))
		}
		return v.Raw
	}
}

// number returns the value only when it is a JSON number.
func number(v gjson.Result) *float64 {
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}

func textOf(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	return v.Raw
}

func hasAny(v gjson.Result, keys []string) bool {
	for _, k := range keys {
		if v.Get(k).Exists() {
			return true
		}
	}
	return false
}
