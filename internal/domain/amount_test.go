package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "zero", in: "0", want: "0"},
		{name: "plain integer", in: "50000000000", want: "50000000000"},
		{name: "surrounding whitespace", in: "  42  ", want: "42"},
		{name: "beyond int64", in: "99999999999999999999999999999999", want: "99999999999999999999999999999999"},
		{name: "empty", in: "", wantErr: true},
		{name: "whitespace only", in: "   ", wantErr: true},
		{name: "negative", in: "-5", wantErr: true},
		{name: "explicit plus", in: "+5", wantErr: true},
		{name: "decimal point", in: "1.5", wantErr: true},
		{name: "exponent", in: "1e9", wantErr: true},
		{name: "hex", in: "0x10", wantErr: true},
		{name: "inner space", in: "1 0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseStoredAmount(t *testing.T) {
	n, err := ParseStoredAmount("123456789012345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", n.String())

	for _, bad := range []string{"", "abc", "-1", "1.5"} {
		_, err := ParseStoredAmount(bad)
		assert.ErrorIs(t, err, ErrCorruptData, "input %q", bad)
	}
}
