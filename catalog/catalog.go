// Package catalog reads the services CSV that drives the dashboard.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"service-dashboard/models"
)

var requiredColumns = []string{"Name", "URL", "Category"}

// Group is a category and the services listed under it
type Group struct {
	Category string
	Services []models.Service
}

// Load reads services from a CSV file
func Load(path string) ([]models.Service, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	services, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return services, nil
}

// Read parses services from CSV with a Name, URL and Category header.
// Extra columns are ignored and column order does not matter.
func Read(r io.Reader) ([]models.Service, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimPrefix(strings.TrimSpace(col), "\uFEFF")] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing %q column in header", col)
		}
	}

	var services []models.Service
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		if isBlank(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		svc, err := toService(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		services = append(services, svc)
	}

	return services, nil
}

func toService(record []string, index map[string]int) (models.Service, error) {
	field := func(col string) (string, error) {
		i := index[col]
		if i >= len(record) {
			return "", fmt.Errorf("missing %s", col)
		}
		return strings.TrimSpace(record[i]), nil
	}

	var svc models.Service
	var err error
	if svc.Name, err = field("Name"); err != nil {
		return svc, err
	}
	if svc.URL, err = field("URL"); err != nil {
		return svc, err
	}
	if svc.Category, err = field("Category"); err != nil {
		return svc, err
	}
	return svc, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// GroupByCategory groups services by category, keeping the order in which
// categories and services first appear
func GroupByCategory(services []models.Service) []Group {
	var groups []Group
	positions := make(map[string]int)

	for _, svc := range services {
		pos, ok := positions[svc.Category]
		if !ok {
			pos = len(groups)
			positions[svc.Category] = pos
			groups = append(groups, Group{Category: svc.Category})
		}
		groups[pos].Services = append(groups[pos].Services, svc)
	}

	return groups
}
