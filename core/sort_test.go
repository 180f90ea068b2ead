package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortDirection(t *testing.T) {
	assert.Equal(t, "asc", SortAsc.String())
	assert.Equal(t, "desc", SortDesc.String())

	assert.True(t, SortAsc.IsValid())
	assert.True(t, SortDesc.IsValid())
	assert.False(t, SortDirection("invalid").IsValid())

	assert.Equal(t, SortDesc, SortAsc.Opposite())
	assert.Equal(t, SortAsc, SortDesc.Opposite())
}

func TestParseSortDirection(t *testing.T) {
	tests := []struct {
		in     string
		want   SortDirection
		wantOK bool
	}{
		{"asc", SortAsc, true},
		{"ASC", SortAsc, true},
		{" desc ", SortDesc, true},
		{"Descending", SortDesc, true},
		{"", SortAsc, true},
		{"sideways", SortAsc, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSortDirection(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, 20, ClampPageSize(20))
	assert.Equal(t, MaxPageSize, ClampPageSize(MaxPageSize+10))
	assert.Equal(t, DefaultPageSize, ClampPageSize(0))
	assert.Equal(t, DefaultPageSize, ClampPageSize(-5))
}
