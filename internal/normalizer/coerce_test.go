package normalizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicescan/internal/normalizer"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input *string
		want  *float64
	}{
		{"nil", nil, nil},
		{"empty", strPtr(""), nil},
		{"currency only", strPtr("USD"), nil},
		{"plain", strPtr("58.11"), floatPtr(58.11)},
		{"dollar sign", strPtr("$17.94"), floatPtr(17.94)},
		{"thousands separator dropped", strPtr("$1,234.56"), floatPtr(1234.56)},
		{"minus sign dropped", strPtr("-42.00"), floatPtr(42)},
		{"surrounding text", strPtr("Total: 12.5 EUR"), floatPtr(12.5)},
		{"two decimal points", strPtr("1.2.3"), nil},
		{"lone point", strPtr("."), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizer.ParseAmount(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	q := normalizer.ParseQuantity(strPtr("3"))
	require.NotNil(t, q)
	assert.Equal(t, int64(3), *q)

	q = normalizer.ParseQuantity(strPtr("2.75 pcs"))
	require.NotNil(t, q)
	assert.Equal(t, int64(2), *q)

	q = normalizer.ParseQuantity(strPtr("9007199254740992"))
	require.NotNil(t, q)
	assert.Equal(t, int64(9007199254740992), *q)

	assert.Nil(t, normalizer.ParseQuantity(strPtr("n/a")))
	assert.Nil(t, normalizer.ParseQuantity(strPtr("9223372036854775807")))
	assert.Nil(t, normalizer.ParseQuantity(strPtr("9223372036854775808")))
	assert.Nil(t, normalizer.ParseQuantity(strPtr("-9223372036854775808")))
	assert.Nil(t, normalizer.ParseQuantity(strPtr("1000000000000000000000000000000")))
	assert.Nil(t, normalizer.ParseQuantity(nil))
}
