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

type AdminOrderUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, log *zap.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, log: log}
}

type AdminUpdateOrderStatusInput struct {
	Status         string
	TrackingNumber string
}

// 注文一覧（管理者）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return wrapDBError(err)
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			details, err := r.OrderDetails().ListByOrderID(ctx, o.ID)
			if err != nil {
				return wrapDBError(err)
			}
			outs = append(outs, toOrderOutput(o, details))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// ステータス更新。遷移表に無い遷移は409で拒否する。
// PENDING→PROCESSING→SHIPPED→DELIVEREDは順送りのみ。
// CANCELLEDにできるのはPENDINGのときだけで、そのとき在庫を戻す。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := strings.TrimSpace(in.Status)
	if !model.IsValidOrderStatus(newStatus) {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	to := model.OrderStatus(newStatus)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}

		// すでに同じなら何もしない（200）
		if o.Status == to {
			return nil
		}

		// 遷移表チェック
		if !model.CanTransitionOrder(o.Status, to) {
			return NewHTTPError(http.StatusConflict, "invalid transition")
		}

		// CANCELLEDのときだけ在庫戻し
		if to == model.OrderStatusCancelled {
			details, err := r.OrderDetails().ListByOrderID(ctx, orderID)
			if err != nil {
				return wrapDBError(err)
			}

			for _, d := range details {
				if err := r.Inventory().ReleaseStock(ctx, d.BookID, d.Quantity); err != nil {
					return wrapDBError(err)
				}
			}

			//未確定の決済も注文と一緒にCANCELLEDへ
			p, err := r.Payments().FindByOrderIDForUpdate(ctx, orderID)
			if err != nil && err != repo.ErrNotFound {
				return wrapDBError(err)
			}
			if err == nil && p.Status != model.PaymentStatusCompleted {
				if err := r.Payments().MarkCancelled(ctx, p.ID); err != nil {
					return wrapDBError(err)
				}
			}
		}

		// 発送なら配送番号も保存
		if to == model.OrderStatusShipped && strings.TrimSpace(in.TrackingNumber) != "" {
			if err := r.Orders().UpdateTrackingNumber(ctx, orderID, strings.TrimSpace(in.TrackingNumber)); err != nil {
				return wrapDBError(err)
			}
		}

		// ステータス更新
		if err := r.Orders().UpdateStatus(ctx, orderID, to); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return wrapDBError(err)
		}

		//履歴（STATUS_CHANGED）
		beforeJSON := `{"status":"` + string(o.Status) + `"}`
		afterJSON := `{"status":"` + string(to) + `"}`
		if err := r.Histories().Create(ctx, model.OrderHistory{
			OrderID:    orderID,
			UserID:     actorAdminUserID,
			Action:     model.OrderActionStatusChanged,
			BeforeJSON: beforeJSON,
			AfterJSON:  afterJSON,
			CreatedAt:  time.Now(),
		}); err != nil {
			return wrapDBError(err)
		}

		return nil
	})

	if err != nil {
		return asConflictIfTxExhausted(err)
	}

	u.log.Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", newStatus),
		zap.Int64("actor", actorAdminUserID),
	)
	return nil
}
