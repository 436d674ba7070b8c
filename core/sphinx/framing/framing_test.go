// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package framing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testTag = []byte("HOPR")

func TestEncodeLayout(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	b := Encode([]byte{0xaa, 0xbb}, testTag)
	require.Equal([]byte{0, 0, 0, 2, 'H', 'O', 'P', 'R', 0xaa, 0xbb}, b)

	b = Encode([]byte{0xaa}, nil)
	require.Equal([]byte{0, 0, 0, 1, 0xaa}, b)
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tag := rapid.SliceOfN(rapid.Byte(), 0, 8).Draw(t, "tag")
		msgs := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, 300), 1, 10).Draw(t, "msgs")

		one, err := Decode(Encode(msgs[0], tag), tag)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !bytes.Equal(one, msgs[0]) {
			t.Fatalf("Decode(Encode(m)) != m")
		}

		var buf []byte
		for _, m := range msgs {
			buf = AppendEncode(buf, m, tag)
		}
		decoded, err := DecodeAll(buf, tag)
		if err != nil {
			t.Fatalf("DecodeAll: %v", err)
		}
		if len(decoded) != len(msgs) {
			t.Fatalf("decoded %d messages, expected %d", len(decoded), len(msgs))
		}
		for i := range msgs {
			if !bytes.Equal(decoded[i], msgs[i]) {
				t.Fatalf("message %d mismatch", i)
			}
		}
	})
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	b := Encode([]byte("hello"), testTag)

	_, err := Decode(b[:len(b)-1], testTag)
	assert.ErrorIs(err, ErrLengthMismatch)
	_, err = Decode(append(append([]byte{}, b...), 0), testTag)
	assert.ErrorIs(err, ErrLengthMismatch)
	_, err = Decode(b[:3], testTag)
	assert.ErrorIs(err, ErrTruncated)
	_, err = Decode(b, []byte("HOPX"))
	assert.ErrorIs(err, ErrTagMismatch)

	for i := 0; i < PrefixLength+len(testTag); i++ {
		flipped := append([]byte{}, b...)
		flipped[i] ^= 0x80
		_, err = Decode(flipped, testTag)
		assert.Error(err, "flip at %d", i)
	}

	_, err = DecodeAll(append(append([]byte{}, b...), 0, 0), testTag)
	assert.ErrorIs(err, ErrTruncated)
}

func TestPadUnpad(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	padded, err := Pad([]byte("payload"), testTag, 64)
	require.NoError(err)
	require.Len(padded, 64)

	msg, err := Unpad(padded, testTag)
	require.NoError(err)
	require.Equal([]byte("payload"), msg)

	padded[63] = 1
	_, err = Unpad(padded, testTag)
	require.ErrorIs(err, ErrInvalidPadding)

	_, err = Pad(make([]byte, 61), testTag, 64)
	require.ErrorIs(err, ErrTooLarge)
}
