package model

import "time"

type PaymentType string

const (
	PaymentTypeCash       PaymentType = "Cash"
	PaymentTypeCreditCard PaymentType = "CreditCard"
	PaymentTypeEsewa      PaymentType = "Esewa"
	PaymentTypeKhalti     PaymentType = "Khalti"
)

func IsValidPaymentType(s string) bool {
	switch PaymentType(s) {
	case PaymentTypeCash, PaymentTypeCreditCard, PaymentTypeEsewa, PaymentTypeKhalti:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// 注文1件につき決済レコードは1つ。
// amountは作成時点のorder.total_priceと必ず一致させる。
// transaction_idはゲートウェイ確定まで空。
type Payment struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64         `gorm:"not null;uniqueIndex" json:"order_id"`
	Amount        int64         `gorm:"not null" json:"amount"`
	Type          PaymentType   `gorm:"type:varchar(20);not null;default:'Cash'" json:"type"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionID string        `gorm:"type:varchar(100)" json:"transaction_id"`
	FailureReason string        `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
