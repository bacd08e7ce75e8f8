package model

import "time"

type PostModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Text      string    `gorm:"type:varchar(2047);not null" json:"text"`
	AuthorID  string    `gorm:"type:uuid;not null;index" json:"author_id"`
	Author    UserModel `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PostModel) TableName() string {
	return "posts"
}
