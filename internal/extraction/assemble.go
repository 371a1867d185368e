package extraction

import "silkroute/internal/domain"

// Assemble combines an aggregated declaration with the active template
// into the final declaration record. Every field definition of the
// template appears exactly once, in template order, so that
// required-but-unfilled fields are visible to the caller. A template
// with zero fields yields a record with zero statistics, never an error.
func Assemble(agg AggregatedDeclaration, tpl *domain.Template) *DeclarationRecord {
	rec := &DeclarationRecord{
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		Fields:       make([]RecordField, 0, len(tpl.Fields)),
	}

	for i := range tpl.Fields {
		def := &tpl.Fields[i]
		rf := RecordField{
			Name:     def.Name,
			Label:    def.Label,
			Section:  def.Section,
			Required: def.Required,
			DataType: def.DataType,
		}

		if resolved, ok := agg[def.Name]; ok && resolved.Filled && resolved.Value != "" {
			rf.Filled = true
			rf.Value = resolved.Value
			rf.Confidence = resolved.Confidence
			rf.SourceDocumentID = resolved.DocumentID
			rf.SourceDocumentType = resolved.DocumentType
		}

		rec.Stats.TotalFields++
		if def.Required {
			rec.Stats.RequiredFields++
		}
		if rf.Filled {
			rec.Stats.FilledFields++
			if def.Required {
				rec.Stats.FilledRequired++
			}
		}
		rec.Fields = append(rec.Fields, rf)
	}
	return rec
}
