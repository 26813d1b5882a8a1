package post

import (
	"net/url"
	"regexp"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Pagination is a page request. Page is kept as the client sent it so it can
// be echoed back; only the skip offset is clamped.
type Pagination struct {
	Page  int
	Limit int
}

// ParsePagination reads page and limit from the query string. Missing, zero
// or non-numeric values fall back to the defaults.
func ParsePagination(q url.Values) Pagination {
	p := Pagination{
		Page:  atoiOr(q.Get("page"), DefaultPage),
		Limit: atoiOr(q.Get("limit"), DefaultLimit),
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	return p
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return def
	}
	return n
}

func (p Pagination) Skip() int64 {
	if p.Page < 1 {
		return 0
	}
	return int64(p.Page-1) * int64(p.Limit)
}

func (p Pagination) TotalPages(total int64) int64 {
	return (total + int64(p.Limit) - 1) / int64(p.Limit)
}

func (p Pagination) findOptions() *options.FindOptions {
	return options.Find().
		SetSort(newestFirst).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func publishedFilter() bson.M {
	return bson.M{"status": StatusPublished}
}

// searchFilter matches published posts whose title, content or any tag
// contains q, ignoring case.
func searchFilter(q string) bson.M {
	re := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
	return bson.M{
		"status": StatusPublished,
		"$or": bson.A{
			bson.M{"title": re},
			bson.M{"content": re},
			bson.M{"tags": re},
		},
	}
}

func authorFilter(authorId string) bson.M {
	return bson.M{"author": authorId}
}
