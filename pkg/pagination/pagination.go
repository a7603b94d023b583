package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 200
)

// Params holds validated pagination parameters
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads page and limit from the query string. Invalid or missing values
// fall back to the defaults; limit is capped at MaxLimit.
func Parse(c *gin.Context) Params {
	return Params{
		Page:  positive(c.Query("page"), DefaultPage, 0),
		Limit: positive(c.Query("limit"), DefaultLimit, MaxLimit),
	}
}

func positive(raw string, fallback, max int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
