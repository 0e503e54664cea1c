package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostType string

const (
	PostTypeSell  PostType = "sell"
	PostTypeBuy   PostType = "buy"
	PostTypeTrade PostType = "trade"
)

const (
	MaxPostImages  = 3
	MaxReplyImages = 2
)

// Post is a marketplace listing. Price is only meaningful for sell posts.
type Post struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Title       string    `gorm:"size:200;not null"`
	Description string    `gorm:"type:text;not null"`
	Category    string    `gorm:"size:64"`
	Type        PostType  `gorm:"size:16;not null"`
	Price       *float64  `gorm:"type:decimal(10,2)"`
	AuthorName  string    `gorm:"size:120;not null"`
	AuthorEmail string    `gorm:"size:255;not null"`
	AuthorPhone string    `gorm:"size:32"`
	Images      ImageList `gorm:"type:text"`
	IsActive    bool      `gorm:"not null;index:idx_marketplace_posts_active_created,priority:1"`
	IsSold      bool      `gorm:"not null"`
	Replies     []Reply   `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_marketplace_posts_active_created,priority:2"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Post) TableName() string {
	return "marketplace_posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
