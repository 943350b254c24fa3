package domain

import "github.com/klass-lk/crudboot"

type Category struct {
	ID          int64  `json:"id"`
	Code        string `json:"code" binding:"required"`
	Designation string `json:"designation" binding:"required"`
}

func (c *Category) IsEmpty() bool {
	return crudboot.IsEmptyValue(c)
}

func (c *Category) SetID(id int64) {
	c.ID = id
}

// CategoryItem is the list projection of a category.
type CategoryItem struct {
	ID          int64  `json:"id"`
	Designation string `json:"designation"`
}

func (c *CategoryItem) IsEmpty() bool {
	return crudboot.IsEmptyValue(c)
}
