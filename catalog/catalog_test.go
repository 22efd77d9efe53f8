package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"service-dashboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	input := "Name,URL,Category\n" +
		"Plex,http://plex.lan:32400,Media\n" +
		"\n" +
		"Home Assistant, http://ha.lan:8123 ,Automation\n" +
		"Jellyfin,http://jellyfin.lan,Media\n"

	services, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []models.Service{
		{Name: "Plex", URL: "http://plex.lan:32400", Category: "Media"},
		{Name: "Home Assistant", URL: "http://ha.lan:8123", Category: "Automation"},
		{Name: "Jellyfin", URL: "http://jellyfin.lan", Category: "Media"},
	}, services)
}

func TestRead_ColumnOrderAndExtras(t *testing.T) {
	input := "\uFEFFCategory,Notes,Name,URL\nMedia,living room,Plex,http://plex.lan\n"

	services, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []models.Service{{Name: "Plex", URL: "http://plex.lan", Category: "Media"}}, services)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "catalog is empty"},
		{"missing column", "Name,URL\nPlex,http://plex.lan\n", `missing "Category" column`},
		{"short row", "Name,URL,Category\nPlex,http://plex.lan,Media\nBroken,http://x\n", "line 3: missing Category"},
		{"bad quoting", "Name,URL,Category\n\"Plex,http://plex.lan,Media\n", "failed to read record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,URL,Category\nGitHub,https://github.com,Dev\n"), 0o644))

	services, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, services, 1)

	_, err = Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorContains(t, err, "failed to open catalog")
}

func TestGroupByCategory(t *testing.T) {
	services := []models.Service{
		{Name: "Plex", Category: "Media"},
		{Name: "Grafana", Category: "Monitoring"},
		{Name: "Jellyfin", Category: "Media"},
		{Name: "Uptime Kuma", Category: "Monitoring"},
		{Name: "Pi-hole", Category: "Network"},
	}

	groups := GroupByCategory(services)
	require.Len(t, groups, 3)
	assert.Equal(t, "Media", groups[0].Category)
	assert.Equal(t, "Monitoring", groups[1].Category)
	assert.Equal(t, "Network", groups[2].Category)
	assert.Equal(t, []string{"Plex", "Jellyfin"}, names(groups[0].Services))
	assert.Equal(t, []string{"Grafana", "Uptime Kuma"}, names(groups[1].Services))

	assert.Empty(t, GroupByCategory(nil))
}

func names(services []models.Service) []string {
	out := make([]string, 0, len(services))
	for _, s := range services {
		out = append(out, s.Name)
	}
	return out
}
