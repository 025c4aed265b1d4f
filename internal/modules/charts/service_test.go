package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		in   string
		days int
	}{
		{"1M", 30},
		{"3M", 91},
		{"6M", 182},
		{"1Y", 365},
		{"5Y", 1825},
		{"all", 36500},
		{"", 365},
		{" 1y ", 365},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			days, err := ParseDateRange(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.days, days)
		})
	}
}

func TestParseDateRange_Unknown(t *testing.T) {
	_, err := ParseDateRange("2W")
	assert.Error(t, err)
}
