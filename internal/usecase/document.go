package usecase

import (
	"strconv"
	"strings"

	"catalograg/internal/domain"
)

const undetermined = "undetermined"

// BuildProductDocument renders one product row as the text that gets
// embedded. Judgement fields are left as explicit placeholders; they are
// never inferred from the row.
func BuildProductDocument(record domain.ProductRecord) string {
	var suitable []string
	for _, skin := range domain.SkinTypes {
		if isSuitable(record.Field(skin)) {
			suitable = append(suitable, skin)
		}
	}
	skinTypes := undetermined
	if len(suitable) > 0 {
		skinTypes = strings.Join(suitable, ", ")
	}

	var b strings.Builder
	b.WriteString("Product name: " + record.Field(domain.FieldName) + "\n")
	b.WriteString("Brand: " + record.Field(domain.FieldBrand) + "\n")
	b.WriteString("Category: " + record.Field(domain.FieldLabel) + "\n")
	b.WriteString("Price: " + record.Field(domain.FieldPrice) + "\n")
	b.WriteString("Rank: " + record.Field(domain.FieldRank) + "\n")
	b.WriteString("Suitable skin types: " + skinTypes + "\n\n")
	b.WriteString("Product introduction: " + undetermined + ".\n")
	b.WriteString("Formula analysis: " + undetermined + ".\n")
	b.WriteString("Comedogenic risk: " + undetermined + ".\n")
	b.WriteString("Sensitivity/irritation risk: " + undetermined + ".\n\n")
	b.WriteString("Ingredients: " + record.Field(domain.FieldIngredients) + "\n")
	return b.String()
}

// isSuitable accepts the flag spellings spreadsheets produce for a ticked
// skin-type column: 1, 1.0, TRUE.
func isSuitable(v string) bool {
	if strings.EqualFold(v, "true") {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == 1
}

// BuildMetadata extracts the stored attributes of a product row.
func BuildMetadata(record domain.ProductRecord) domain.Metadata {
	return domain.Metadata{
		domain.MetaProductID: domain.MakeProductID(record),
		domain.MetaName:      record.Field(domain.FieldName),
		domain.MetaBrand:     record.Field(domain.FieldBrand),
		domain.MetaLabel:     record.Field(domain.FieldLabel),
		domain.MetaPrice:     record.Number(domain.FieldPrice),
		domain.MetaRank:      record.Number(domain.FieldRank),
	}
}

// Batch holds the parallel slices the indexer consumes.
type Batch struct {
	Documents []string
	Metadatas []domain.Metadata
	IDs       []string
}

// Len returns the number of documents in the batch.
func (b Batch) Len() int {
	return len(b.Documents)
}

// PrepareBatch builds documents, metadata and ids for every record, in order.
func PrepareBatch(records []domain.ProductRecord) Batch {
	batch := Batch{
		Documents: make([]string, 0, len(records)),
		Metadatas: make([]domain.Metadata, 0, len(records)),
		IDs:       make([]string, 0, len(records)),
	}
	for _, record := range records {
		meta := BuildMetadata(record)
		batch.Documents = append(batch.Documents, BuildProductDocument(record))
		batch.Metadatas = append(batch.Metadatas, meta)
		batch.IDs = append(batch.IDs, meta.String(domain.MetaProductID))
	}
	return batch
}
