package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

type AdminPaymentListFilter struct {
	Page   int
	Limit  int
	Status string
}

type PaymentRepository interface {
	FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error)
	// 決済確定のsingle-writer化のため行ロックを取って取得する
	FindByOrderIDForUpdate(ctx context.Context, orderID int64) (model.Payment, error)
	Create(ctx context.Context, p model.Payment) (int64, error)
	// COMPLETEDにしてtransaction_idを保存
	MarkCompleted(ctx context.Context, paymentID int64, transactionID string) error
	// FAILEDにして理由を保存
	MarkFailed(ctx context.Context, paymentID int64, reason string) error
	// 注文キャンセル時、未確定の決済をCANCELLEDにする
	MarkCancelled(ctx context.Context, paymentID int64) error
	ListAdmin(ctx context.Context, f AdminPaymentListFilter) ([]model.Payment, int64, error)
}
