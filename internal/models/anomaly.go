package models

// Severity is part of the wire contract with the persistence and reporting layers.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// AnomalyType values produced by the normalizer. Issue-derived anomalies use the issue field name.
type AnomalyType string

const (
	AnomalyGarbageText       AnomalyType = "garbage_text"
	AnomalyMetadataIntegrity AnomalyType = "metadata_integrity_failure"
	AnomalyMergeArtifact     AnomalyType = "merge_artifact"
)

// Anomaly is a finding attached to a document.
type Anomaly struct {
	Type        AnomalyType    `json:"type" yaml:"type"`
	Severity    Severity       `json:"severity" yaml:"severity"`
	Description string         `json:"description" yaml:"description"`
	RowIndex    int            `json:"row_index,omitempty" yaml:"row_index,omitempty"`
	Details     map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// HasCritical reports whether any anomaly in the list is critical.
func HasCritical(anomalies []Anomaly) bool {
	for _, a := range anomalies {
		if a.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
