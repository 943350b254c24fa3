package crudboot

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListRequest holds the query parameters of a list endpoint. Nil pointers and
// empty strings mean the parameter was not supplied.
type ListRequest[FK any] struct {
	ForeignKey   *FK
	CurrentPage  *int
	RowCount     *int
	Sort         string
	SearchPhrase string
}

// Unbounded reports whether the caller asked for the full list: no page, no
// row count, no sort and no search phrase.
func (r ListRequest[FK]) Unbounded() bool {
	return r.CurrentPage == nil && r.RowCount == nil && r.Sort == "" && r.SearchPhrase == ""
}

// Page returns the 1-based page index, 1 when absent or below 1.
func (r ListRequest[FK]) Page() int {
	if r.CurrentPage == nil || *r.CurrentPage < 1 {
		return 1
	}
	return *r.CurrentPage
}

// Size returns the row count, 0 (unbounded) when absent or negative.
func (r ListRequest[FK]) Size() int {
	if r.RowCount == nil || *r.RowCount < 0 {
		return 0
	}
	return *r.RowCount
}

// BuildListRequest reads foreignKey, currentPage, rowCount, sort and
// searchPhrase from the query string.
func BuildListRequest[FK any](c *gin.Context) (ListRequest[FK], error) {
	var request ListRequest[FK]

	if value := c.Query("foreignKey"); value != "" {
		fk, err := ParseKey[FK](value)
		if err != nil {
			return request, ErrBadRequest.New("invalid foreignKey: " + value)
		}
		request.ForeignKey = &fk
	}

	var err error
	if request.CurrentPage, err = queryInt(c, "currentPage"); err != nil {
		return request, err
	}
	if request.RowCount, err = queryInt(c, "rowCount"); err != nil {
		return request, err
	}
	request.Sort = c.Query("sort")
	request.SearchPhrase = c.Query("searchPhrase")
	return request, nil
}

func queryInt(c *gin.Context, name string) (*int, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, ErrBadRequest.New("invalid " + name + ": " + value)
	}
	return &n, nil
}

// BuildRequest binds the JSON body to T and aborts with 400 when it cannot.
func BuildRequest[T interface{}](c *gin.Context) (T, error) {
	var request T
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrBadRequest.New(err.Error()))
		return request, ErrBadRequest.New(err.Error())
	}
	return request, nil
}
