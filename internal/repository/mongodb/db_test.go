package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

func TestPage(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}

	tests := []struct {
		name string
		opts repository.ListOptions
		want []string
	}{
		{"unbounded", repository.ListOptions{}, []string{"a", "b", "c", "d"}},
		{"limit", repository.ListOptions{Limit: 2}, []string{"a", "b"}},
		{"offset and limit", repository.ListOptions{Offset: 1, Limit: 2}, []string{"b", "c"}},
		{"offset past end", repository.ListOptions{Offset: 10, Limit: 2}, []string{}},
		{"negative offset", repository.ListOptions{Offset: -3}, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, page(ids, tt.opts))
		})
	}
}

func TestNewestFirst(t *testing.T) {
	ids := []string{"old", "mid", "new"}
	assert.Equal(t, []string{"new", "mid", "old"}, newestFirst(ids))
	assert.Equal(t, []string{"old", "mid", "new"}, ids, "input is not modified")
	assert.Empty(t, newestFirst(nil))
}

func TestFindOptions(t *testing.T) {
	fo := findOptions(repository.ListOptions{Offset: 5, Limit: 10}, newestFirstSort)
	if assert.NotNil(t, fo.Skip) && assert.NotNil(t, fo.Limit) {
		assert.Equal(t, int64(5), *fo.Skip)
		assert.Equal(t, int64(10), *fo.Limit)
	}

	fo = findOptions(repository.ListOptions{}, newestFirstSort)
	assert.Nil(t, fo.Skip)
	assert.Nil(t, fo.Limit)
}

func TestNormalizeVideo(t *testing.T) {
	v := &domain.Video{ID: "v1"}
	normalizeVideo(v)

	assert.NotNil(t, v.Likes)
	assert.NotNil(t, v.Comments)
	assert.NotNil(t, v.Captions)
	assert.NotNil(t, v.Bookmarks)
}
