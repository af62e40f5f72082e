package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"go.uber.org/zap"
)

// PaymentUsecase は注文ごとの決済レコードを管理する。
// ゲートウェイとの実通信は外。ここはverify済みの結果だけ受ける。
type PaymentUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewPaymentUsecase(tx repo.TransactionManager, log *zap.Logger) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, log: log}
}

type CreatePaymentInput struct {
	Type string
	// 0なら注文のtotal_priceを使う。指定するなら一致必須。
	Amount int64
}

type PaymentOutput struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"order_id"`
	Amount        int64     `json:"amount"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateOrGetPayment は注文の決済レコードを返す（無ければ作る）。冪等。
// amountを明示指定した場合、order.total_priceと一致しなければ拒否する。
func (u *PaymentUsecase) CreateOrGetPayment(ctx context.Context, userID int64, orderID int64, in CreatePaymentInput) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	payType := strings.TrimSpace(in.Type)
	if payType == "" {
		payType = string(model.PaymentTypeCash)
	}
	if !model.IsValidPaymentType(payType) {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment type")
	}
	if in.Amount < 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid amount")
	}

	var out PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		//既存があればそれを返す
		existing, err := r.Payments().FindByOrderID(ctx, orderID)
		if err == nil {
			out = toPaymentOutput(existing)
			return nil
		}
		if err != repo.ErrNotFound {
			return wrapDBError(err)
		}

		//金額はorder.total_priceに必ず一致させる
		if in.Amount != 0 && in.Amount != o.TotalPrice {
			return NewHTTPError(http.StatusBadRequest, "amount mismatch")
		}

		now := time.Now()
		p := model.Payment{
			OrderID:   orderID,
			Amount:    o.TotalPrice,
			Type:      model.PaymentType(payType),
			Status:    model.PaymentStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		id, err := r.Payments().Create(ctx, p)
		if err != nil {
			//同時作成に負けたら勝った方を読む
			ex2, err2 := r.Payments().FindByOrderID(ctx, orderID)
			if err2 == nil {
				out = toPaymentOutput(ex2)
				return nil
			}
			return wrapDBError(err)
		}

		p.ID = id
		out = toPaymentOutput(p)
		return nil
	})

	if err != nil {
		return PaymentOutput{}, asConflictIfTxExhausted(err)
	}
	return out, nil
}

// Settle はverify済みの決済を確定する。冪等：COMPLETED済みなら今の状態をそのまま返す。
// 注文がPENDINGならPROCESSINGへ進める（paymentからorderへの一方向リンク）。
func (u *PaymentUsecase) Settle(ctx context.Context, userID int64, orderID int64, transactionID string) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	txID := strings.TrimSpace(transactionID)
	if txID == "" || len(txID) > 100 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid transaction_id")
	}

	var out PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		//行ロックを取ってsingle-writerにする
		p, err := r.Payments().FindByOrderIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}

		//2回目以降は何もしない
		if p.Status == model.PaymentStatusCompleted {
			out = toPaymentOutput(p)
			return nil
		}

		if err := r.Payments().MarkCompleted(ctx, p.ID, txID); err != nil {
			return wrapDBError(err)
		}

		//PENDINGの注文だけ進める。それ以外は触らない。
		if o.Status == model.OrderStatusPending {
			if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusProcessing); err != nil {
				return wrapDBError(err)
			}
			if err := r.Histories().Create(ctx, model.OrderHistory{
				OrderID:    orderID,
				UserID:     userID,
				Action:     model.OrderActionPaymentOK,
				BeforeJSON: `{"status":"` + string(model.OrderStatusPending) + `"}`,
				AfterJSON:  `{"status":"` + string(model.OrderStatusProcessing) + `"}`,
				CreatedAt:  time.Now(),
			}); err != nil {
				return wrapDBError(err)
			}
		}

		p.Status = model.PaymentStatusCompleted
		p.TransactionID = txID
		p.FailureReason = ""
		out = toPaymentOutput(p)
		return nil
	})

	if err != nil {
		return PaymentOutput{}, asConflictIfTxExhausted(err)
	}

	u.log.Info("payment settled",
		zap.Int64("order_id", orderID),
		zap.String("transaction_id", txID),
	)
	return out, nil
}

// Fail は決済をFAILEDにする。注文はPENDINGのまま（再決済できるように）。
func (u *PaymentUsecase) Fail(ctx context.Context, userID int64, orderID int64, reason string) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 255 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid reason")
	}

	var out PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		p, err := r.Payments().FindByOrderIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}

		//確定済みの決済は失敗にできない
		if p.Status == model.PaymentStatusCompleted {
			return NewHTTPError(http.StatusConflict, "invalid transition")
		}

		if err := r.Payments().MarkFailed(ctx, p.ID, reason); err != nil {
			return wrapDBError(err)
		}

		if err := r.Histories().Create(ctx, model.OrderHistory{
			OrderID:   orderID,
			UserID:    userID,
			Action:    model.OrderActionPaymentFailed,
			AfterJSON: `{"reason":"` + reason + `"}`,
			CreatedAt: time.Now(),
		}); err != nil {
			return wrapDBError(err)
		}

		p.Status = model.PaymentStatusFailed
		p.FailureReason = reason
		out = toPaymentOutput(p)
		return nil
	})

	if err != nil {
		return PaymentOutput{}, asConflictIfTxExhausted(err)
	}

	u.log.Warn("payment failed",
		zap.Int64("order_id", orderID),
		zap.String("reason", reason),
	)
	return out, nil
}

// GetPaymentByOrder は注文の決済を返す（所有チェック付き）。
func (u *PaymentUsecase) GetPaymentByOrder(ctx context.Context, userID int64, orderID int64) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		p, err := r.Payments().FindByOrderID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}

		out = toPaymentOutput(p)
		return nil
	})

	if err != nil {
		return PaymentOutput{}, err
	}
	return out, nil
}

// 管理者用の決済一覧
func (u *PaymentUsecase) AdminList(ctx context.Context, f repo.AdminPaymentListFilter) ([]PaymentOutput, error) {
	if f.Page < 1 {
		return []PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		payments, _, err := r.Payments().ListAdmin(ctx, f)
		if err != nil {
			return wrapDBError(err)
		}

		outs = make([]PaymentOutput, 0, len(payments))
		for _, p := range payments {
			outs = append(outs, toPaymentOutput(p))
		}
		return nil
	})

	if err != nil {
		return []PaymentOutput{}, err
	}
	return outs, nil
}

func toPaymentOutput(p model.Payment) PaymentOutput {
	return PaymentOutput{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Type:          string(p.Type),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
	}
}
