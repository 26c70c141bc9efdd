package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "4", want: 4},
		{in: "4294967295", want: 4294967295},
		{in: "4294967296", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "", wantErr: true},
		{in: "4abc", wantErr: true},
		{in: "0x10", wantErr: true},
		{in: "99999999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err), "want validation error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckTarget(t *testing.T) {
	got, err := CheckTarget(MaxTarget)
	require.NoError(t, err)
	assert.Equal(t, uint32(MaxTarget), got)

	_, err = CheckTarget(MaxTarget + 1)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "4294967296")
}
