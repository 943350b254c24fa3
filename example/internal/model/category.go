package model

type Category struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Designation string `gorm:"size:200;not null" json:"designation"`
}

func (Category) TableName() string {
	return "categories"
}
