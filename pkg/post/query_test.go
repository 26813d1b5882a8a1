package post

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
		skip  int64
	}{
		{"", Pagination{Page: 1, Limit: 10}, 0},
		{"page=3&limit=5", Pagination{Page: 3, Limit: 5}, 10},
		{"page=0&limit=0", Pagination{Page: 1, Limit: 10}, 0},
		{"page=abc&limit=x", Pagination{Page: 1, Limit: 10}, 0},
		{"limit=1000", Pagination{Page: 1, Limit: 1000}, 0},
		{"limit=-4", Pagination{Page: 1, Limit: 10}, 0},
		{"page=-2", Pagination{Page: -2, Limit: 10}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			assert.NoError(t, err)
			p := ParsePagination(q)
			assert.Equal(t, tc.want, p)
			assert.Equal(t, tc.skip, p.Skip())
		})
	}
}

func TestTotalPages(t *testing.T) {
	p := Pagination{Page: 1, Limit: 10}
	assert.Equal(t, int64(0), p.TotalPages(0))
	assert.Equal(t, int64(1), p.TotalPages(1))
	assert.Equal(t, int64(1), p.TotalPages(10))
	assert.Equal(t, int64(2), p.TotalPages(11))
}

func TestSearchFilterEscapesQuery(t *testing.T) {
	f := searchFilter("c++ (go)")
	re := bson.M{"$regex": `c\+\+ \(go\)`, "$options": "i"}

	assert.Equal(t, StatusPublished, f["status"])
	assert.Equal(t, bson.A{
		bson.M{"title": re},
		bson.M{"content": re},
		bson.M{"tags": re},
	}, f["$or"])
}
