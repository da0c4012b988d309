package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	spec := Default()

	assert.Equal(t, SHA256, spec.Algorithm)
	assert.Equal(t, 32, spec.SecretLength)
}

func TestRequiredLength(t *testing.T) {
	tests := []struct {
		name    string
		alg     Algorithm
		want    int
		wantErr error
	}{
		{name: "sha1", alg: SHA1, want: 16},
		{name: "sha256", alg: SHA256, want: 32},
		{name: "sha512", alg: SHA512, want: 64},
		{name: "unknown", alg: Algorithm("MD5"), wantErr: ErrUnknownAlgorithm},
		{name: "empty", alg: Algorithm(""), wantErr: ErrUnknownAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequiredLength(tt.alg)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{in: "SHA1", want: SHA1},
		{in: "sha256", want: SHA256},
		{in: "HmacSHA512", want: SHA512},
		{in: "SHA-256", want: SHA256},
		{in: " sha1 ", want: SHA1},
		{in: "SHA384", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpecs(t *testing.T) {
	specs := Specs()

	require.Len(t, specs, 3)
	assert.Equal(t, AlgorithmSpec{Algorithm: SHA1, SecretLength: 16}, specs[0])
	assert.Equal(t, AlgorithmSpec{Algorithm: SHA256, SecretLength: 32}, specs[1])
	assert.Equal(t, AlgorithmSpec{Algorithm: SHA512, SecretLength: 64}, specs[2])
}
