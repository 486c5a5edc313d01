// Package params parses path and query parameters shared by the resource
// handlers.
package params

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	ErrInvalidID   = errors.New("invalid id")
	ErrInvalidPage = errors.New("invalid pagination parameters")
)

// ID reads a positive integer path parameter.
func ID(c *gin.Context, key string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// Page reads ?limit= and ?offset=. Missing values are returned as zero and
// left for the repository to default.
func Page(c *gin.Context) (limit, offset int, err error) {
	if limit, err = intQuery(c, "limit"); err != nil {
		return 0, 0, ErrInvalidPage
	}
	if offset, err = intQuery(c, "offset"); err != nil {
		return 0, 0, ErrInvalidPage
	}
	return limit, offset, nil
}

// Int64 reads an optional non-negative integer query parameter.
func Int64(c *gin.Context, key string) (int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return v, nil
}

// Float reads an optional non-negative decimal query parameter.
func Float(c *gin.Context, key string) (float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, errors.New(key + " must be a non-negative number")
	}
	return v, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, ErrInvalidPage
	}
	return v, nil
}
