package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AnalyzeResponse is returned by the upload endpoints.
type AnalyzeResponse struct {
	HTML     string          `json:"html"`
	Analysis *AnalysisResult `json:"analysis"`
}

// HistoryResponse lists stored analyses, newest first.
type HistoryResponse struct {
	Analyses []*AnalysisResult `json:"analyses"`
	Count    int               `json:"count"`
}

// HealthResponse reports service status and provider counters.
type HealthResponse struct {
	Status    string                    `json:"status"`
	Version   string                    `json:"version"`
	Time      string                    `json:"time"`
	Providers []string                  `json:"providers"`
	Metrics   map[string]map[string]int `json:"metrics,omitempty"`
}
