package model

type User struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:100;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         string `gorm:"size:50;not null" json:"role"`
}

func (User) TableName() string {
	return "users"
}
