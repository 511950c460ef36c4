package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringPtrReturnsNilForEmpty(t *testing.T) {
	assert.Nil(t, StringPtr(""))
}

func TestStringPtrReturnsPointerForNonEmpty(t *testing.T) {
	p := StringPtr("public")
	require := assert.New(t)
	require.NotNil(p)
	require.Equal("public", *p)
}

func TestRowCountPointerNilForUnknown(t *testing.T) {
	assert.Nil(t, RowCountPointer(-1))
}

func TestRowCountPointerReturnsValueForKnownCount(t *testing.T) {
	p := RowCountPointer(42)
	require := assert.New(t)
	require.NotNil(p)
	require.Equal(uint64(42), *p)
}
