package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []string
		want    DataType
	}{
		{"no samples", nil, TypeText},
		{"only blanks", []string{"", "  "}, TypeText},
		{"integers", []string{"1", "-42", "007"}, TypeInteger},
		{"integers with blanks", []string{"1", "", "3"}, TypeInteger},
		{"zero and one are integers first", []string{"0", "1"}, TypeInteger},
		{"decimals", []string{"1.5", "-0.25"}, TypeDecimal},
		{"mixed int and decimal is text", []string{"1", "1.5"}, TypeText},
		{"decimal needs fraction digits", []string{"1."}, TypeText},
		{"booleans any case", []string{"TRUE", "no", "Yes", "false"}, TypeBoolean},
		{"booleans with digits", []string{"yes", "0"}, TypeBoolean},
		{"iso dates", []string{"2024-01-31", "1999-12-01"}, TypeDate},
		{"dmy dates", []string{"31/01/2024"}, TypeDate},
		{"mixed date forms", []string{"2024-01-31", "31/01/2024"}, TypeDate},
		{"date shape only", []string{"9999-99-99"}, TypeDate},
		{"emails", []string{"a@b.co", "first.last@example.org"}, TypeEmail},
		{"email without dot", []string{"a@b"}, TypeText},
		{"one outlier breaks consensus", []string{"1", "2", "3", "x"}, TypeText},
		{"samples are trimmed", []string{" 12 ", "\t3"}, TypeInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InferType(tt.samples))
		})
	}
}

func TestDataTypeValid(t *testing.T) {
	t.Parallel()

	for _, d := range DataTypes {
		assert.True(t, d.Valid(), d)
	}
	assert.False(t, DataType("uuid").Valid())
}
