package models

import "time"

// Service represents a single entry of the services catalog
type Service struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// Status represents the result of a reachability check for a service
type Status struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Category   string    `json:"category"`
	Up         bool      `json:"up"`
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// IconResult is a cached outcome of probing an icon URL
type IconResult struct {
	URL       string
	OK        bool
	CheckedAt time.Time
}
