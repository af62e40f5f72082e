package model

import "time"

// カートの明細。(cart_id, book_id) は1組だけ（同じ本は数量加算）。
// 価格は保存しない。小計は常にBookの現在価格から計算する。
// 価格確定は注文確定時の1回のみ。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"not null;index:idx_cart_book,unique" json:"cart_id"`
	BookID    int64     `gorm:"not null;index:idx_cart_book,unique" json:"book_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
