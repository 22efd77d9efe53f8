package filter

import (
	"strings"

	"service-dashboard/config"
	"service-dashboard/models"
)

// Filter applies category filter criteria to services
type Filter struct {
	include map[string]bool
	exclude map[string]bool
}

// NewFilter creates a new Filter instance
func NewFilter(cfg config.FilterConfig) *Filter {
	return &Filter{
		include: toSet(cfg.IncludeCategories),
		exclude: toSet(cfg.ExcludeCategories),
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	return set
}

// ApplyFilters filters services based on the configuration
func (f *Filter) ApplyFilters(services []models.Service) []models.Service {
	var filtered []models.Service

	for _, svc := range services {
		if f.matchesFilters(svc) {
			filtered = append(filtered, svc)
		}
	}

	return filtered
}

// matchesFilters checks if a service matches all filter criteria
func (f *Filter) matchesFilters(svc models.Service) bool {
	category := strings.ToLower(strings.TrimSpace(svc.Category))

	// An empty include list lets every category through
	if len(f.include) > 0 && !f.include[category] {
		return false
	}

	return !f.exclude[category]
}
