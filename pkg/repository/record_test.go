package repository

import (
	"testing"

	"github.com/marmos91/dittouploads/pkg/uploads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_KeepsLargeIntegers(t *testing.T) {
	rec := NewRecord(uploads.Location{Disk: "default", Path: "/a", Name: "a"}, uploads.Metadata{
		"big":   int64(1<<60 + 1),
		"ratio": 0.25,
		"list":  []any{int64(9007199254740993), "x"},
	})

	data, err := Encode(rec)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, int64(1<<60+1), got.Meta["big"])
	assert.Equal(t, 0.25, got.Meta["ratio"])
	assert.Equal(t, []any{int64(9007199254740993), "x"}, got.Meta["list"])
}

func TestDecode_EmptyAndMissingMeta(t *testing.T) {
	loc := uploads.Location{Disk: "default", Path: "/a", Name: "a"}

	data, err := Encode(NewRecord(loc, uploads.Metadata{}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"meta":{}`)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.NotNil(t, got.Meta)
	assert.Empty(t, got.Meta)

	data, err = Encode(NewRecord(loc, nil))
	require.NoError(t, err)

	got, err = Decode(data)
	require.NoError(t, err)
	assert.Nil(t, got.Meta)
}
