package model

import "time"

type OrderAction string

const (
	OrderActionPlaced        OrderAction = "PLACED"
	OrderActionCancelled     OrderAction = "CANCELLED"
	OrderActionStatusChanged OrderAction = "STATUS_CHANGED"
	OrderActionPaymentOK     OrderAction = "PAYMENT_COMPLETED"
	OrderActionPaymentFailed OrderAction = "PAYMENT_FAILED"
)

// 注文の操作履歴。「誰が」「どの注文を」「どうしたか」を残す。
type OrderHistory struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64       `gorm:"not null;index" json:"order_id"`
	UserID    int64       `gorm:"not null;index" json:"user_id"`
	Action    OrderAction `gorm:"type:varchar(50);not null;index" json:"action"`
	// 遷移ならbefore/afterのstatusをJSON文字列で保存する。
	BeforeJSON string    `gorm:"type:text" json:"before_json"`
	AfterJSON  string    `gorm:"type:text" json:"after_json"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}
