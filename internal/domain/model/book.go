package model

import (
	"time"

	"gorm.io/gorm"
)

type BookLanguage string

const (
	BookLanguageEnglish BookLanguage = "English"
	BookLanguageNepali  BookLanguage = "Nepali"
)

// 価格は最小通貨単位のint64で保存する。
// stockの増減は InventoryRepository 経由のみ。
type Book struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	ISBN        string         `gorm:"type:varchar(13);not null;uniqueIndex" json:"isbn"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"type:varchar(100);index" json:"category"`
	Language    BookLanguage   `gorm:"type:varchar(20);not null;default:'English'" json:"language"`
	Price       int64          `gorm:"not null" json:"price"`
	Stock       int64          `gorm:"not null" json:"stock"`
	Featured    bool           `gorm:"not null;default:false" json:"featured"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
