package nlu

import (
	"log/slog"
	"strings"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// Confidence levels reported on a Result.
const (
	ConfidenceIntent   = 0.8
	ConfidenceNoIntent = 0.3
)

// Result is the interpretation of a single utterance.
type Result struct {
	Intent         models.Intent `json:"intent,omitempty"`
	Entities       []Entity      `json:"entities"`
	Confidence     float64       `json:"confidence"`
	NormalizedText string        `json:"normalized_text"`
}

// Processor combines the intent matcher with every entity extractor. It holds
// no mutable state and is safe for concurrent use.
type Processor struct {
	extractors []extractor
}

// NewProcessor returns a Processor using the built-in pattern tables.
func NewProcessor() *Processor {
	return &Processor{extractors: extractorTable}
}

// Process runs the intent matcher once and every extractor once.
func (p *Processor) Process(text string) Result {
	normalized := strings.TrimSpace(text)
	res := Result{
		Intent:         MatchIntent(normalized),
		Entities:       []Entity{},
		Confidence:     ConfidenceNoIntent,
		NormalizedText: normalized,
	}
	if res.Intent != models.IntentNone {
		res.Confidence = ConfidenceIntent
	}
	for _, ex := range p.extractors {
		if v, ok := ex.extract(normalized); ok {
			res.Entities = append(res.Entities, Entity{
				Kind:       ex.kind,
				Value:      v,
				Confidence: ex.confidence,
				Raw:        normalized,
			})
		}
	}
	slog.Debug("Processor.Process", "intent", res.Intent, "entities", len(res.Entities))
	return res
}

// First returns the first entity of the given kind.
func (r Result) First(kind models.EntityKind) (Entity, bool) {
	for _, e := range r.Entities {
		if e.Kind == kind {
			return e, true
		}
	}
	return Entity{}, false
}

// Has reports whether an entity of kind was extracted.
func (r Result) Has(kind models.EntityKind) bool {
	_, ok := r.First(kind)
	return ok
}

func firstAs[T any](r Result, kind models.EntityKind) (T, bool) {
	var zero T
	e, ok := r.First(kind)
	if !ok {
		return zero, false
	}
	v, ok := e.Value.(T)
	return v, ok
}

// PackageType returns the extracted package kind.
func (r Result) PackageType() (models.PackageType, bool) {
	return firstAs[models.PackageType](r, models.EntityPackageType)
}

// Priority returns the extracted priority.
func (r Result) Priority() (models.Priority, bool) {
	return firstAs[models.Priority](r, models.EntityPriority)
}

// Dimensions returns the extracted dimensions.
func (r Result) Dimensions() (models.Dimensions, bool) {
	return firstAs[models.Dimensions](r, models.EntityDimensions)
}

// Weight returns the extracted weight.
func (r Result) Weight() (models.Weight, bool) {
	return firstAs[models.Weight](r, models.EntityWeight)
}

// Bool returns the extracted yes/no answer.
func (r Result) Bool() (bool, bool) {
	return firstAs[bool](r, models.EntityBoolean)
}

// Email returns the extracted email address.
func (r Result) Email() (string, bool) {
	return firstAs[string](r, models.EntityEmail)
}

// Phone returns the extracted phone number.
func (r Result) Phone() (string, bool) {
	return firstAs[string](r, models.EntityPhone)
}
