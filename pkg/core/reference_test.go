package core

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 1. 常量与编码布局
// -----------------------------------------------------------------------------

func TestReference_Sizes(t *testing.T) {
	assert.Equal(t, 33, ReferenceSize)
	assert.Equal(t, 44, TextSize)
}

func TestReference_BinaryLayout(t *testing.T) {
	h := mockHash("layout")
	ref := NewReference(RefLink, h)

	buf := ref.Bytes()
	assert.Equal(t, byte(1), buf[0], "第一个字节是类型标签")
	assert.Equal(t, h[:], buf[1:], "其余字节是原始 Hash，无填充")

	data := NewReference(RefData, h).Bytes()
	assert.Equal(t, byte(0), data[0])
}

// -----------------------------------------------------------------------------
// 2. Round-trip
// -----------------------------------------------------------------------------

func TestReference_RoundTrip(t *testing.T) {
	for _, rt := range []RefType{RefData, RefLink} {
		for _, seed := range []string{"", "a", "hello", "zero-ish", "\xff\xff"} {
			ref := NewReference(rt, mockHash(seed))

			buf := ref.Bytes()
			back, err := DecodeBinary(buf[:])
			require.NoError(t, err)
			assert.Equal(t, ref, back)

			text := ref.String()
			assert.Len(t, text, TextSize)
			assert.Equal(t, ref, mustParseReference(t, text))
		}
	}
}

func TestReference_ZeroHashRoundTrip(t *testing.T) {
	ref := Reference{Type: RefData}
	assert.Equal(t, strings.Repeat("A", TextSize), ref.String())
	assert.Equal(t, ref, mustParseReference(t, ref.String()))
}

func TestReference_TextAndJSON(t *testing.T) {
	ref := NewReference(RefLink, mockHash("json"))

	data, err := json.Marshal(map[string]Reference{"root": ref})
	require.NoError(t, err)
	assert.Contains(t, string(data), ref.String())

	var out map[string]Reference
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, ref, out["root"])

	bin, err := ref.MarshalBinary()
	require.NoError(t, err)
	var back Reference
	require.NoError(t, back.UnmarshalBinary(bin))
	assert.Equal(t, ref, back)
}

// -----------------------------------------------------------------------------
// 3. 校验
// -----------------------------------------------------------------------------

func TestDecodeBinary_RejectsUnknownTag(t *testing.T) {
	h := mockHash("tag")
	for b := 2; b <= 255; b++ {
		buf := append([]byte{byte(b)}, h[:]...)
		_, err := DecodeBinary(buf)

		var de *DecodeError
		require.ErrorAs(t, err, &de, "tag %d 应该被拒绝", b)
		assert.Equal(t, InvalidRefType, de.Kind)
		assert.Equal(t, byte(b), de.Byte)
		assert.ErrorIs(t, err, ErrInvalidData)
	}
}

func TestDecodeBinary_RejectsWrongLength(t *testing.T) {
	_, err := DecodeBinary(make([]byte, ReferenceSize-1))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, InvalidLength, de.Kind)
}

func TestParseReference_LengthGuard(t *testing.T) {
	valid := NewReference(RefData, mockHash("len")).String()

	lengths := []int{0, 1, TextSize - 1, TextSize + 1, TextSize * 2}
	for _, n := range lengths {
		s := strings.Repeat("A", n)
		_, err := ParseReference(s)

		var de *DecodeError
		require.ErrorAs(t, err, &de, "length %d", n)
		assert.Equal(t, InvalidLength, de.Kind)
		assert.Equal(t, n, de.Length)
		assert.ErrorIs(t, err, ErrInvalidData)
	}

	// 正确长度 ± 1 (从合法引用出发)
	_, err := ParseReference(valid[:TextSize-1])
	assert.ErrorIs(t, err, ErrInvalidData)
	_, err = ParseReference(valid + "A")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestParseReference_InvalidBase64Byte(t *testing.T) {
	valid := NewReference(RefLink, mockHash("b64")).String()

	tests := []struct {
		name  string
		index int
		char  byte
	}{
		{"bang in the middle", 10, '!'},
		{"padding char", TextSize - 1, '='},
		{"url alphabet", 0, '-'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := []byte(valid)
			b[tt.index] = tt.char

			_, err := ParseReference(string(b))
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, InvalidBase64Byte, de.Kind)
			assert.Equal(t, tt.char, de.Byte)
			assert.Equal(t, tt.index, de.Index)
		})
	}
}

func TestParseReference_InvalidTagInText(t *testing.T) {
	h := mockHash("text-tag")
	buf := append([]byte{7}, h[:]...)
	s := textEncoding.EncodeToString(buf)

	_, err := ParseReference(s)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, InvalidRefType, de.Kind)
	assert.Equal(t, byte(7), de.Byte)
}

// -----------------------------------------------------------------------------
// 4. 流式读取
// -----------------------------------------------------------------------------

func TestReadReference_Sequence(t *testing.T) {
	refs := []Reference{
		NewReference(RefData, mockHash("1")),
		NewReference(RefLink, mockHash("2")),
		NewReference(RefData, mockHash("3")),
	}
	var buf bytes.Buffer
	for _, r := range refs {
		b := r.Bytes()
		buf.Write(b[:])
	}

	for i, want := range refs {
		got, ok, err := ReadReference(&buf)
		require.NoError(t, err, "ref %d", i)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok, err := ReadReference(&buf)
	require.NoError(t, err)
	assert.False(t, ok, "干净 EOF 返回 ok=false")
}

func TestReadReference_TruncatedRecord(t *testing.T) {
	b := NewReference(RefData, mockHash("trunc")).Bytes()
	_, ok, err := ReadReference(bytes.NewReader(b[:10]))
	assert.False(t, ok)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadReference_BadTag(t *testing.T) {
	b := NewReference(RefData, mockHash("bad")).Bytes()
	b[0] = 9
	_, ok, err := ReadReference(bytes.NewReader(b[:]))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestRefType_String(t *testing.T) {
	assert.Equal(t, "Data", RefData.String())
	assert.Equal(t, "Link", RefLink.String())
	assert.Equal(t, "RefType(5)", RefType(5).String())
}
