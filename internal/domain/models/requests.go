package models

// SelectRequest is the body of POST /api/select.
type SelectRequest struct {
	Symbol string `json:"symbol" validate:"required,max=16"`
}

// ConfidenceRequest is the body of POST /api/confidence. Level is a fraction (0.95).
type ConfidenceRequest struct {
	Level float64 `json:"level" validate:"required,confidence"`
}
