package domain

import "github.com/klass-lk/crudboot"

type Product struct {
	ID           int64   `json:"id"`
	CategoryID   int64   `json:"categoryId" binding:"required"`
	Code         string  `json:"code" binding:"required"`
	Designation  string  `json:"designation" binding:"required"`
	Price        float64 `json:"price"`
	Discontinued bool    `json:"discontinued"`
}

func (p *Product) IsEmpty() bool {
	return crudboot.IsEmptyValue(p)
}

func (p *Product) SetID(id int64) {
	p.ID = id
}

// ProductItem is the list projection of a product.
type ProductItem struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"categoryId"`
	Code        string  `json:"code"`
	Designation string  `json:"designation"`
	Price       float64 `json:"price"`
}

func (p *ProductItem) IsEmpty() bool {
	return crudboot.IsEmptyValue(p)
}
