package extraction

import (
	"sort"

	"silkroute/internal/domain"
)

// candidate is one non-empty extracted value competing for a field.
type candidate struct {
	field ExtractedField
	doc   *DocumentExtraction
	rank  int
}

// Aggregate merges the extractions of one shipment's documents into a
// single resolved declaration. The conflict policy is a total,
// deterministic order: document-type priority rank first (highest
// priority wins), then confidence, then earliest-processed document,
// then document ID. The result is a pure function of its inputs; the
// iteration order of the extractions slice does not matter.
func Aggregate(extractions []DocumentExtraction, priority []domain.DocumentType) AggregatedDeclaration {
	rank := make(map[domain.DocumentType]int, len(priority))
	for i, dt := range priority {
		rank[dt] = i
	}
	rankOf := func(dt domain.DocumentType) int {
		if r, ok := rank[dt]; ok {
			return r
		}
		return len(priority) // unranked types sort after all ranked ones
	}

	candidates := make(map[string][]candidate)
	seen := make(map[string]bool)
	for i := range extractions {
		doc := &extractions[i]
		for _, f := range doc.Fields {
			seen[f.Name] = true
			if f.Value == "" {
				continue
			}
			candidates[f.Name] = append(candidates[f.Name], candidate{
				field: f,
				doc:   doc,
				rank:  rankOf(doc.DocumentType),
			})
		}
	}

	agg := make(AggregatedDeclaration, len(seen))
	for name := range seen {
		cands := candidates[name]
		if len(cands) == 0 {
			agg[name] = ResolvedField{Name: name}
			continue
		}
		sort.SliceStable(cands, func(i, j int) bool {
			if cands[i].rank != cands[j].rank {
				return cands[i].rank < cands[j].rank
			}
			if cands[i].field.Confidence != cands[j].field.Confidence {
				return cands[i].field.Confidence > cands[j].field.Confidence
			}
			if !cands[i].doc.ProcessedAt.Equal(cands[j].doc.ProcessedAt) {
				return cands[i].doc.ProcessedAt.Before(cands[j].doc.ProcessedAt)
			}
			return cands[i].doc.DocumentID.String() < cands[j].doc.DocumentID.String()
		})

		winner := cands[0]
		agg[name] = ResolvedField{
			Name:         name,
			Value:        winner.field.Value,
			Confidence:   winner.field.Confidence,
			Filled:       true,
			DocumentID:   winner.doc.DocumentID,
			DocumentType: winner.doc.DocumentType,
		}
	}
	return agg
}
