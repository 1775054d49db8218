package transport

import "github.com/signalrelay/authgate/domain"

// Error bodies always carry a single error field, whatever the status.
type ErrorResponse struct {
	Error string `json:"error"`
}

type SignupResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

type UpdateResponse struct {
	Success bool            `json:"success"`
	Profile *domain.Profile `json:"profile"`
}

type HealthResponse struct {
	Status   string                 `json:"status"`
	Services map[string]interface{} `json:"services,omitempty"`
}
