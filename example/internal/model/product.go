package model

type Product struct {
	ID           int64   `gorm:"primaryKey" json:"id"`
	CategoryID   int64   `gorm:"index;not null" json:"categoryId"`
	Code         string  `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Designation  string  `gorm:"size:200;not null" json:"designation"`
	Price        float64 `json:"price"`
	Discontinued bool    `gorm:"not null;default:false" json:"discontinued"`
}

func (Product) TableName() string {
	return "products"
}
