package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Reply struct {
	ID          string    `gorm:"primaryKey;size:36"`
	PostID      string    `gorm:"column:post_id;size:36;not null;index:idx_marketplace_replies_post_id"`
	Content     string    `gorm:"type:text;not null"`
	AuthorName  string    `gorm:"size:120;not null"`
	AuthorEmail string    `gorm:"size:255;not null"`
	AuthorPhone string    `gorm:"size:32"`
	Images      ImageList `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (Reply) TableName() string {
	return "marketplace_replies"
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
