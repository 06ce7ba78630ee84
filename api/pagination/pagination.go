package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Query is the paging window of a list request.
type Query struct {
	Start int
	Limit int
}

// Result is a page of data plus the total row count.
type Result struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
}

// FromContext reads the start and limit query parameters.
func FromContext(c *gin.Context) (*Query, error) {
	q := &Query{Limit: defaultLimit}

	if s := c.Query("start"); s != "" {
		start, err := strconv.Atoi(s)
		if err != nil || start < 0 {
			return nil, errors.Errorf("invalid start %q", s)
		}
		q.Start = start
	}

	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			return nil, errors.Errorf("invalid limit %q", l)
		}
		q.Limit = limit
	}

	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	return q, nil
}
