// Package scoring folds a validation result into a confidence score and a
// processed/review status.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"fjacquet/stmt-forensics/internal/models"
)

// Document statuses.
const (
	StatusProcessed = "processed"
	StatusReview    = "review"
)

// Review reasons.
const (
	ReasonValidationErrors = "validation_errors"
	ReasonLowConfidence    = "low_confidence"
	ReasonCriticalAnomaly  = "critical_anomaly_detected"
)

// Policy holds the confidence penalties and the review threshold.
type Policy struct {
	ErrorPenalty        float64 `mapstructure:"error_penalty" yaml:"error_penalty" json:"error_penalty"`
	CriticalWarnPenalty float64 `mapstructure:"critical_warn_penalty" yaml:"critical_warn_penalty" json:"critical_warn_penalty"`
	WarnPenalty         float64 `mapstructure:"warn_penalty" yaml:"warn_penalty" json:"warn_penalty"`
	InfoPenalty         float64 `mapstructure:"info_penalty" yaml:"info_penalty" json:"info_penalty"`
	Floor               float64 `mapstructure:"floor" yaml:"floor" json:"floor"`
	FraudCap            float64 `mapstructure:"fraud_cap" yaml:"fraud_cap" json:"fraud_cap"`
	FraudBase           float64 `mapstructure:"fraud_base" yaml:"fraud_base" json:"fraud_base"`
	DefaultBase         float64 `mapstructure:"default_base" yaml:"default_base" json:"default_base"`
	ReviewThreshold     float64 `mapstructure:"review_threshold" yaml:"review_threshold" json:"review_threshold"`
}

// DefaultPolicy returns the standard penalties.
func DefaultPolicy() Policy {
	return Policy{
		ErrorPenalty:        0.15,
		CriticalWarnPenalty: 0.10,
		WarnPenalty:         0.05,
		InfoPenalty:         0.02,
		Floor:               0.05,
		FraudCap:            0.3,
		FraudBase:           0.85,
		DefaultBase:         0.85,
		ReviewThreshold:     0.8,
	}
}

// Validate checks that every value is a probability.
func (p Policy) Validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"error_penalty", p.ErrorPenalty},
		{"critical_warn_penalty", p.CriticalWarnPenalty},
		{"warn_penalty", p.WarnPenalty},
		{"info_penalty", p.InfoPenalty},
		{"floor", p.Floor},
		{"fraud_cap", p.FraudCap},
		{"fraud_base", p.FraudBase},
		{"default_base", p.DefaultBase},
		{"review_threshold", p.ReviewThreshold},
	} {
		if f.v < 0 || f.v > 1 {
			errs = append(errs, fmt.Errorf("scoring.%s must be in [0,1], got %v", f.name, f.v))
		}
	}
	return errors.Join(errs...)
}

// Input is everything the score depends on.
type Input struct {
	// BaseConfidence is the extraction confidence; zero selects DefaultBase.
	BaseConfidence      float64
	Result              models.ValidationResult
	NormalizerAnomalies []models.Anomaly
	MetadataFraud       bool
}

// Outcome is the scored document.
type Outcome struct {
	Confidence    float64  `json:"confidence" yaml:"confidence"`
	Status        string   `json:"status" yaml:"status"`
	ReviewReasons []string `json:"review_reasons" yaml:"review_reasons"`
}

// Confidence applies the fraud cap and the per-issue penalties to base.
func (p Policy) Confidence(base float64, result models.ValidationResult, fraud bool) float64 {
	confidence := base
	if fraud {
		confidence = math.Min(confidence, p.FraudCap)
	}

	penalty := float64(len(result.Errors)) * p.ErrorPenalty
	for _, w := range result.Warnings {
		switch w.Severity {
		case models.SeverityCritical:
			penalty += p.CriticalWarnPenalty
		case models.SeverityWarning:
			penalty += p.WarnPenalty
		default:
			penalty += p.InfoPenalty
		}
	}
	if penalty > 0 {
		confidence = math.Max(p.Floor, confidence-penalty)
	}
	return math.Round(confidence*10000) / 10000
}

// Score computes confidence and status. A metadata discrepancy resets the base
// to FraudBase before the cap applies.
func (p Policy) Score(in Input) Outcome {
	base := in.BaseConfidence
	if base <= 0 {
		base = p.DefaultBase
	}
	if in.MetadataFraud {
		base = p.FraudBase
	}

	out := Outcome{
		Confidence:    p.Confidence(base, in.Result, in.MetadataFraud),
		Status:        StatusProcessed,
		ReviewReasons: []string{},
	}
	if len(in.Result.Errors) > 0 {
		out.ReviewReasons = append(out.ReviewReasons, ReasonValidationErrors)
	}
	if out.Confidence < p.ReviewThreshold {
		out.ReviewReasons = append(out.ReviewReasons, ReasonLowConfidence)
	}
	if models.HasCritical(in.NormalizerAnomalies) {
		out.ReviewReasons = append(out.ReviewReasons, ReasonCriticalAnomaly)
	}
	if len(out.ReviewReasons) > 0 {
		out.Status = StatusReview
	}
	return out
}
