package model

import "time"

// 注文明細。unit_priceは確定時点のBook価格のスナップショット。
// 以後Bookの価格が変わってもここは変えない。
type OrderDetail struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"not null;index" json:"order_id"`
	BookID    int64     `gorm:"not null;index" json:"book_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	UnitPrice int64     `gorm:"not null" json:"unit_price"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 明細の小計
func (d OrderDetail) Subtotal() int64 {
	return d.UnitPrice * d.Quantity
}
