package model

import "encoding/json"

// Method records which stage of the pipeline produced a classification
type Method string

const (
	MethodKeyword Method = "keyword" // Deterministic keyword rule
	MethodModel   Method = "model"   // Statistical model fallback
)

// Status is the outcome of a classification call
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ClassificationResult is the response shape of the classification pipeline.
// On error only Status and Error are populated.
type ClassificationResult struct {
	Category        Category `json:"category,omitempty"`
	ImportanceScore float64  `json:"importance_score,omitempty"` // 0.85 for keyword hits, model confidence otherwise
	Method          Method   `json:"method,omitempty"`
	Status          Status   `json:"status"`
	Error           string   `json:"error,omitempty"`
}

// MarshalJSON always writes importance_score for successful results,
// including a score of zero
func (r ClassificationResult) MarshalJSON() ([]byte, error) {
	type plain ClassificationResult
	if !r.OK() {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		ImportanceScore float64 `json:"importance_score"`
	}{plain(r), r.ImportanceScore})
}

// OK reports whether the classification succeeded
func (r ClassificationResult) OK() bool {
	return r.Status == StatusSuccess
}

// HealthState is the overall service health
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
)

// Model path states reported by HealthStatus
const (
	ModelReady    = "ready"
	ModelError    = "error"
	ModelDisabled = "disabled" // no provider configured
)

// HealthStatus reports whether a canary classification succeeded
type HealthStatus struct {
	Status      HealthState `json:"status"`
	ModelStatus string      `json:"model_status"`
	Error       string      `json:"error,omitempty"`
}
