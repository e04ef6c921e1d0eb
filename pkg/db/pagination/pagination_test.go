package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := Pagination{}.Normalize(20, 100)
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, 20, p.Limit)
		assert.Equal(t, 0, p.Offset())
	})

	t.Run("clamps limit", func(t *testing.T) {
		p := Pagination{Page: 3, Limit: 500}.Normalize(20, 100)
		assert.Equal(t, 100, p.Limit)
		assert.Equal(t, 200, p.Offset())
	})
}

func TestBuildPageInfo(t *testing.T) {
	info := BuildPageInfo(Pagination{Page: 2, Limit: 10}, 25)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasMore)

	info = BuildPageInfo(Pagination{Page: 3, Limit: 10}, 25)
	assert.False(t, info.HasMore)

	info = BuildPageInfo(Pagination{Page: 1, Limit: 10}, 0)
	assert.Equal(t, 0, info.TotalPages)
	assert.False(t, info.HasMore)
}
