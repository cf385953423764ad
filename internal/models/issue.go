package models

// Issue is a single finding of the validation engine.
// Field names the affected field or detector (closing_balance, benford, velocity, ...);
// Check names the concrete rule that fired.
type Issue struct {
	Field    string         `json:"field" yaml:"field"`
	Check    string         `json:"check,omitempty" yaml:"check,omitempty"`
	Message  string         `json:"message" yaml:"message"`
	Severity Severity       `json:"severity" yaml:"severity"`
	Details  map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Consistency is the cross-document part of a validation result.
type Consistency struct {
	Consistent bool    `json:"consistent" yaml:"consistent"`
	Issues     []Issue `json:"issues" yaml:"issues"`
}

// ValidationResult holds everything the engine found for one document.
type ValidationResult struct {
	Errors      []Issue     `json:"errors" yaml:"errors"`
	Warnings    []Issue     `json:"warnings" yaml:"warnings"`
	Consistency Consistency `json:"consistency" yaml:"consistency"`
}

// NewValidationResult returns an empty, consistent result.
func NewValidationResult() ValidationResult {
	return ValidationResult{
		Errors:      []Issue{},
		Warnings:    []Issue{},
		Consistency: Consistency{Consistent: true, Issues: []Issue{}},
	}
}

// AddError appends an issue to the error list.
func (r *ValidationResult) AddError(issue Issue) {
	r.Errors = append(r.Errors, issue)
}

// AddWarning appends an issue to the warning list.
func (r *ValidationResult) AddWarning(issue Issue) {
	r.Warnings = append(r.Warnings, issue)
}

// AddInconsistency records a cross-document issue and marks the result inconsistent.
func (r *ValidationResult) AddInconsistency(issue Issue) {
	r.Consistency.Consistent = false
	r.Consistency.Issues = append(r.Consistency.Issues, issue)
}

// HasField reports whether any error or warning targets field.
func (r ValidationResult) HasField(field string) bool {
	return r.FindIssue(field) != nil
}

// FindIssue returns the first error or warning for field, or nil.
func (r ValidationResult) FindIssue(field string) *Issue {
	for i := range r.Errors {
		if r.Errors[i].Field == field {
			return &r.Errors[i]
		}
	}
	for i := range r.Warnings {
		if r.Warnings[i].Field == field {
			return &r.Warnings[i]
		}
	}
	return nil
}

// Anomalies flattens errors, warnings and consistency issues into anomaly records,
// the shape persisted beside normalizer anomalies. The issue field becomes the anomaly type.
func (r ValidationResult) Anomalies() []Anomaly {
	out := make([]Anomaly, 0, len(r.Errors)+len(r.Warnings)+len(r.Consistency.Issues))
	for _, group := range [][]Issue{r.Errors, r.Warnings, r.Consistency.Issues} {
		for _, issue := range group {
			out = append(out, Anomaly{
				Type:        AnomalyType(issue.Field),
				Severity:    issue.Severity,
				Description: issue.Message,
				Details:     issue.Details,
			})
		}
	}
	return out
}
