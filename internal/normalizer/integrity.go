package normalizer

import (
	"fmt"
	"sort"

	"fjacquet/stmt-forensics/internal/currencyutils"
	"fjacquet/stmt-forensics/internal/dateutils"
	"fjacquet/stmt-forensics/internal/models"

	"github.com/shopspring/decimal"
)

// ratioPlaces is the precision of recorded discrepancy ratios.
const ratioPlaces = 2

// closingStrategy is one source of the authoritative closing balance.
type closingStrategy struct {
	name    string
	resolve func() decimal.NullDecimal
}

// resolveClosing evaluates the strategies in order and returns the first value
// found with the name of the strategy that produced it.
func resolveClosing(strategies []closingStrategy) (decimal.NullDecimal, string) {
	for _, s := range strategies {
		if v := s.resolve(); v.Valid {
			return v, s.name
		}
	}
	return models.NoAmount, ""
}

// checkIntegrity compares a declared closing balance with the one the rows
// support. It returns nil when there is nothing to report.
func checkIntegrity(declared, calculated decimal.NullDecimal, ratio, minDiscrepancy decimal.Decimal) *models.MetadataDiscrepancy {
	if !declared.Valid || !calculated.Valid || calculated.Decimal.IsZero() {
		return nil
	}
	discrepancy := declared.Decimal.Sub(calculated.Decimal).Abs()
	if discrepancy.LessThanOrEqual(minDiscrepancy) {
		return nil
	}
	if declared.Decimal.Abs().LessThanOrEqual(calculated.Decimal.Abs().Mul(ratio)) {
		return nil
	}
	return &models.MetadataDiscrepancy{
		HeaderClosing:     declared.Decimal,
		CalculatedClosing: calculated.Decimal,
		Discrepancy:       discrepancy,
		Ratio:             currencyutils.Ratio(declared.Decimal, calculated.Decimal, ratioPlaces).Abs(),
	}
}

func integrityAnomaly(md *models.MetadataDiscrepancy, description string) models.Anomaly {
	return models.Anomaly{
		Type:        models.AnomalyMetadataIntegrity,
		Severity:    models.SeverityCritical,
		Description: description,
		Details: map[string]any{
			"header_closing":     models.Float(md.HeaderClosing),
			"calculated_closing": models.Float(md.CalculatedClosing),
			"discrepancy":        models.Float(md.Discrepancy),
			"ratio":              models.Float(md.Ratio),
		},
	}
}

// mergeArtifact reports a file stitched together from exports that wrote dates
// differently: two or more date shapes that each occur at least twice.
func mergeArtifact(shapes map[dateutils.Shape]int) (models.Anomaly, bool) {
	var frequent []string
	for shape, count := range shapes {
		if count >= 2 {
			frequent = append(frequent, string(shape))
		}
	}
	if len(frequent) < 2 {
		return models.Anomaly{}, false
	}
	sort.Strings(frequent)

	counts := make(map[string]any, len(shapes))
	for shape, count := range shapes {
		counts[string(shape)] = count
	}
	return models.Anomaly{
		Type:        models.AnomalyMergeArtifact,
		Severity:    models.SeverityWarning,
		Description: fmt.Sprintf("Mixed date formats detected (%v): file may be merged from multiple exports", frequent),
		Details: map[string]any{
			"formats": frequent,
			"counts":  counts,
		},
	}, true
}
