package otp

import (
	"testing"

	"github.com/pquerna/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURI(t *testing.T) {
	tests := []struct {
		name    string
		params  URIParams
		want    string
		wantErr error
	}{
		{
			name: "defaults",
			params: URIParams{
				Account:   "jane@example.com",
				Issuer:    "MyNotes",
				Secret:    "GEZDGNBVGY3TQOJQ",
				Algorithm: SHA256,
			},
			want: "otpauth://totp/MyNotes:jane@example.com?secret=GEZDGNBVGY3TQOJQ&issuer=MyNotes&algorithm=SHA256&digits=6&period=30",
		},
		{
			name: "labels with spaces and colon",
			params: URIParams{
				Account:   "jane doe",
				Issuer:    "My Notes: EU",
				Secret:    "GEZDGNBVGY3TQOJQ",
				Algorithm: SHA1,
				Digits:    6,
				Period:    30,
			},
			want: "otpauth://totp/My%20Notes%3A%20EU:jane%20doe?secret=GEZDGNBVGY3TQOJQ&issuer=My%20Notes%3A%20EU&algorithm=SHA1&digits=6&period=30",
		},
		{
			name:    "unknown algorithm",
			params:  URIParams{Account: "a", Issuer: "b", Secret: "AE", Algorithm: "MD5"},
			wantErr: ErrUnknownAlgorithm,
		},
		{
			name:    "missing account",
			params:  URIParams{Issuer: "b", Secret: "AE", Algorithm: SHA1},
			wantErr: ErrEmptyLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURI(tt.params)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildURI_ReadableByAuthenticators(t *testing.T) {
	secret := EncodeSecret([]byte("12345678901234567890123456789012"))
	uri, err := BuildURI(URIParams{
		Account:   "jane@example.com",
		Issuer:    "MyNotes",
		Secret:    secret,
		Algorithm: SHA512,
	})
	require.NoError(t, err)

	key, err := otp.NewKeyFromURL(uri)
	require.NoError(t, err)

	assert.Equal(t, "totp", key.Type())
	assert.Equal(t, "MyNotes", key.Issuer())
	assert.Equal(t, "jane@example.com", key.AccountName())
	assert.Equal(t, secret, key.Secret())
	assert.Equal(t, otp.AlgorithmSHA512, key.Algorithm())
	assert.Equal(t, otp.DigitsSix, key.Digits())
	assert.Equal(t, uint64(30), key.Period())
}
