package scoring

import (
	"testing"

	"fjacquet/stmt-forensics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultWith(errors int, warnings ...models.Severity) models.ValidationResult {
	r := models.NewValidationResult()
	for i := 0; i < errors; i++ {
		r.AddError(models.Issue{Field: "closing_balance", Severity: models.SeverityCritical})
	}
	for _, sev := range warnings {
		r.AddWarning(models.Issue{Field: "benford", Severity: sev})
	}
	return r
}

func TestPolicy_Score(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name        string
		in          Input
		wantConf    float64
		wantStatus  string
		wantReasons []string
	}{
		{
			name:        "clean document keeps its base",
			in:          Input{BaseConfidence: 0.92, Result: resultWith(0)},
			wantConf:    0.92,
			wantStatus:  StatusProcessed,
			wantReasons: []string{},
		},
		{
			name:        "zero base uses the default",
			in:          Input{Result: resultWith(0)},
			wantConf:    0.85,
			wantStatus:  StatusProcessed,
			wantReasons: []string{},
		},
		{
			name:        "warnings by severity",
			in:          Input{BaseConfidence: 0.95, Result: resultWith(0, models.SeverityWarning, models.SeverityInfo)},
			wantConf:    0.88,
			wantStatus:  StatusProcessed,
			wantReasons: []string{},
		},
		{
			name:        "error and critical warning",
			in:          Input{BaseConfidence: 0.9, Result: resultWith(1, models.SeverityCritical)},
			wantConf:    0.65,
			wantStatus:  StatusReview,
			wantReasons: []string{ReasonValidationErrors, ReasonLowConfidence},
		},
		{
			name:        "penalties stop at the floor",
			in:          Input{BaseConfidence: 0.9, Result: resultWith(10)},
			wantConf:    0.05,
			wantStatus:  StatusReview,
			wantReasons: []string{ReasonValidationErrors, ReasonLowConfidence},
		},
		{
			name: "metadata fraud caps confidence",
			in: Input{
				BaseConfidence:      0.99,
				Result:              resultWith(1, models.SeverityCritical),
				MetadataFraud:       true,
				NormalizerAnomalies: []models.Anomaly{{Type: models.AnomalyMetadataIntegrity, Severity: models.SeverityCritical}},
			},
			wantConf:    0.05,
			wantStatus:  StatusReview,
			wantReasons: []string{ReasonValidationErrors, ReasonLowConfidence, ReasonCriticalAnomaly},
		},
		{
			name: "critical normalizer anomaly alone forces review",
			in: Input{
				BaseConfidence:      0.95,
				Result:              resultWith(0),
				NormalizerAnomalies: []models.Anomaly{{Type: models.AnomalyMetadataIntegrity, Severity: models.SeverityCritical}},
			},
			wantConf:    0.95,
			wantStatus:  StatusReview,
			wantReasons: []string{ReasonCriticalAnomaly},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.Score(tt.in)
			assert.InDelta(t, tt.wantConf, out.Confidence, 1e-9)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantReasons, out.ReviewReasons)
		})
	}
}

func TestPolicy_ConfidenceFraudCapWithoutPenalties(t *testing.T) {
	p := DefaultPolicy()
	assert.InDelta(t, 0.3, p.Confidence(0.85, resultWith(0), true), 1e-9)
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.Floor = -0.1
	p.ReviewThreshold = 1.5
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring.floor")
	assert.Contains(t, err.Error(), "scoring.review_threshold")
}
