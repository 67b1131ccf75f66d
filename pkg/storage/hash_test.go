package storage

import (
	"crypto/sha256"
	"io/fs"
	"testing"

	"dagao/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func TestParseHashAlgo(t *testing.T) {
	tests := []struct {
		input   string
		want    HashAlgo
		wantErr bool
	}{
		{"", HashSHA256, false},
		{"sha256", HashSHA256, false},
		{"blake3", HashBLAKE3, false},
		{"md5", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHashAlgo(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashAlgo_DigestSize(t *testing.T) {
	data := []byte("hello dagao")

	h := HashSHA256.New()
	h.Write(data)
	want := sha256.Sum256(data)
	assert.Equal(t, want[:], h.Sum(nil))
	assert.Equal(t, types.HashSize, h.Size())

	b := HashBLAKE3.New()
	b.Write(data)
	wantB := blake3.Sum256(data)
	assert.Equal(t, wantB[:], b.Sum(nil))
	assert.Equal(t, types.HashSize, b.Size())
}

func TestErrNotFound_IsNotExist(t *testing.T) {
	assert.ErrorIs(t, ErrNotFound, fs.ErrNotExist)
}
