package iox

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFull_ThreeOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		wantFull bool
		wantErr  error
	}{
		{"exact record", []byte("abcd"), true, nil},
		{"longer stream", []byte("abcdef"), true, nil},
		{"clean eof", nil, false, nil},
		{"truncated record", []byte("ab"), false, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 4)
			full, err := ReadFull(bytes.NewReader(tt.input), buf)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "partial read of 2 bytes, expected 4")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFull, full)
			if full {
				assert.Equal(t, tt.input[:4], buf)
			}
		})
	}
}

func TestReadFull_ShortReadsAreNotEOF(t *testing.T) {
	// OneByteReader 每次只返回 1 个字节，模拟慢速流
	r := iotest.OneByteReader(bytes.NewReader([]byte("12345678")))

	buf := make([]byte, 4)
	full, err := ReadFull(r, buf)
	require.NoError(t, err)
	assert.True(t, full)
	assert.Equal(t, []byte("1234"), buf)

	full, err = ReadFull(r, buf)
	require.NoError(t, err)
	assert.True(t, full)
	assert.Equal(t, []byte("5678"), buf)

	full, err = ReadFull(r, buf)
	require.NoError(t, err)
	assert.False(t, full)
}

func TestReadFull_PropagatesReaderError(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := ReadFull(iotest.ErrReader(boom), make([]byte, 4))
	assert.ErrorIs(t, err, boom)
}

// stallReader 先返回 stalls 次 (0, nil)，之后委托给 r
type stallReader struct {
	r      io.Reader
	stalls int
}

func (s *stallReader) Read(p []byte) (int, error) {
	if s.stalls != 0 {
		if s.stalls > 0 {
			s.stalls--
		}
		return 0, nil
	}
	return s.r.Read(p)
}

func TestReadFull_EmptyReads(t *testing.T) {
	// 少量空读不影响结果
	buf := make([]byte, 4)
	full, err := ReadFull(&stallReader{r: bytes.NewReader([]byte("abcd")), stalls: 3}, buf)
	require.NoError(t, err)
	assert.True(t, full)
	assert.Equal(t, []byte("abcd"), buf)

	// 永远返回 (0, nil) 的 Reader 不会让 ReadFull 卡死
	_, err = ReadFull(&stallReader{r: bytes.NewReader(nil), stalls: -1}, buf)
	assert.ErrorIs(t, err, io.ErrNoProgress)
}
