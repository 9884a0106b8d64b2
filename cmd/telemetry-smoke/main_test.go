package main

import (
	"testing"

	"CapIot.telemetry/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    *models.Query
		wantErr bool
	}{
		{name: "empty means no filter", in: ""},
		{name: "field op value", in: "unit,eq,ops", want: models.NewQuery("unit", "eq", "ops")},
		{name: "value keeps its commas", in: "metadata.tags,eq,a,b,c", want: models.NewQuery("metadata.tags", "eq", "a,b,c")},
		{name: "empty value", in: "unit,eq,", want: models.NewQuery("unit", "eq", "")},
		{name: "two parts", in: "unit,eq", wantErr: true},
		{name: "one part", in: "unit", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQuery(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootCommandVersion(t *testing.T) {
	assert.Equal(t, "metering API v2", rootCmd().Version)
}
