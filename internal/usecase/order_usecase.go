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

type OrderUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewOrderUsecase(tx repo.TransactionManager, log *zap.Logger) *OrderUsecase {
	return &OrderUsecase{tx: tx, log: log}
}

type CheckoutInput struct {
	ShippingAddress string
	ContactNumber   string
	IdempotencyKey  string
}

type OrderDetailOutput struct {
	BookID    int64  `json:"book_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type OrderOutput struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"user_id"`
	Status          string              `json:"status"`
	TotalPrice      int64               `json:"total_price"`
	ShippingAddress string              `json:"shipping_address"`
	ContactNumber   string              `json:"contact_number"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	Details         []OrderDetailOutput `json:"details"`
}

// Checkout はACTIVEカートを注文に変換する。
// 1トランザクションで、在庫減算→注文作成→明細作成→カートのクリアまでやる。
// どれか1行でも在庫が足りなければ全部戻す（部分注文は作らない）。
// 明細のunit_priceはこの時点のBook価格で凍結する。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping_address")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}

	var out OrderOutput

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return wrapDBError(err)
		}
		if found {
			//既存注文を返す
			details, err := r.OrderDetails().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return wrapDBError(err)
			}
			out = toOrderOutput(existing, details)
			return nil
		}

		//ACTIVEカートを行ロック付きで取得してcheckoutを直列化する。
		//同じカートで並走した場合、負けた方はここで待たされ、
		//勝った方のcommit後はカートがCHECKED_OUT済みなのでcart emptyになる。
		cart, err := r.Carts().FindActiveByUserIDForUpdate(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return wrapDBError(err)
		}

		//カート明細取得
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return wrapDBError(err)
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		//在庫を確定時に再チェックして減らす。
		//カート表示と価格が変わっていてもここの価格が正になる。
		details := make([]model.OrderDetail, 0, len(cartItems))
		var total int64 = 0

		for _, ci := range cartItems {
			b, err := r.Books().FindByID(ctx, ci.BookID)
			if err == repo.ErrNotFound || (err == nil && !b.IsActive) {
				return NewHTTPError(http.StatusBadRequest, "invalid")
			}
			if err != nil {
				return wrapDBError(err)
			}

			//在庫減算（足りないなら false）
			ok, err := r.Inventory().ReserveStock(ctx, ci.BookID, ci.Quantity)
			if err != nil {
				return wrapDBError(err)
			}
			if !ok {
				//全部ロールバックされる。残数を返す。
				return NewHTTPError(http.StatusConflict, insufficientStockMessage(b.Stock))
			}

			//スナップショット
			now := time.Now()
			details = append(details, model.OrderDetail{
				BookID:    ci.BookID,
				Title:     b.Title,
				UnitPrice: b.Price,
				Quantity:  ci.Quantity,
				CreatedAt: now,
			})

			total += b.Price * ci.Quantity
		}

		// 注文作成
		now := time.Now()
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:          userID,
			Status:          model.OrderStatusPending,
			TotalPrice:      total,
			ShippingAddress: in.ShippingAddress,
			ContactNumber:   in.ContactNumber,
			IdempotencyKey:  key,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			//競合（同時で同じキーが入った等）はもう一回検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err2 == nil && found2 {
				details2, err3 := r.OrderDetails().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return wrapDBError(err3)
				}
				out = toOrderOutput(ex2, details2)
				return nil
			}
			return NewHTTPError(http.StatusConflict, "idempotency conflict")
		}

		//注文明細一括作成
		if err := r.OrderDetails().CreateBulk(ctx, orderID, details); err != nil {
			return wrapDBError(err)
		}

		//カートをCHECKED_OUTにして、明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return wrapDBError(err)
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return wrapDBError(err)
		}

		//履歴
		if err := r.Histories().Create(ctx, model.OrderHistory{
			OrderID:   orderID,
			UserID:    userID,
			Action:    model.OrderActionPlaced,
			AfterJSON: `{"status":"` + string(model.OrderStatusPending) + `"}`,
			CreatedAt: now,
		}); err != nil {
			return wrapDBError(err)
		}

		created := model.Order{
			ID:              orderID,
			UserID:          userID,
			Status:          model.OrderStatusPending,
			TotalPrice:      total,
			ShippingAddress: in.ShippingAddress,
			ContactNumber:   in.ContactNumber,
			CreatedAt:       now,
		}
		out = toOrderOutput(created, details)
		return nil
	})

	if err != nil {
		return OrderOutput{}, asConflictIfTxExhausted(err)
	}

	u.log.Info("order placed",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", out.ID),
		zap.Int64("total_price", out.TotalPrice),
	)
	return out, nil
}

// CancelOrder はPENDINGの注文だけキャンセルできる。
// 明細の数量ぶんだけ在庫を戻す（確定後の在庫副作用はこれだけ）。
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "invalid transition")
		}

		details, err := r.OrderDetails().ListByOrderID(ctx, orderID)
		if err != nil {
			return wrapDBError(err)
		}

		//在庫戻し
		for _, d := range details {
			if err := r.Inventory().ReleaseStock(ctx, d.BookID, d.Quantity); err != nil {
				return wrapDBError(err)
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return wrapDBError(err)
		}

		//未確定の決済があれば注文に追随してCANCELLEDにする
		p, err := r.Payments().FindByOrderIDForUpdate(ctx, orderID)
		if err != nil && err != repo.ErrNotFound {
			return wrapDBError(err)
		}
		if err == nil && p.Status != model.PaymentStatusCompleted {
			if err := r.Payments().MarkCancelled(ctx, p.ID); err != nil {
				return wrapDBError(err)
			}
		}

		if err := r.Histories().Create(ctx, model.OrderHistory{
			OrderID:    orderID,
			UserID:     userID,
			Action:     model.OrderActionCancelled,
			BeforeJSON: `{"status":"` + string(o.Status) + `"}`,
			AfterJSON:  `{"status":"` + string(model.OrderStatusCancelled) + `"}`,
			CreatedAt:  time.Now(),
		}); err != nil {
			return wrapDBError(err)
		}

		o.Status = model.OrderStatusCancelled
		out = toOrderOutput(o, details)
		return nil
	})

	if err != nil {
		return OrderOutput{}, asConflictIfTxExhausted(err)
	}

	u.log.Info("order cancelled",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", orderID),
	)
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングはまず固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
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

func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return wrapDBError(err)
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		details, err := r.OrderDetails().ListByOrderID(ctx, orderID)
		if err != nil {
			return wrapDBError(err)
		}

		out = toOrderOutput(o, details)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, details []model.OrderDetail) OrderOutput {
	outDetails := make([]OrderDetailOutput, 0, len(details))
	for _, d := range details {
		outDetails = append(outDetails, OrderDetailOutput{
			BookID:    d.BookID,
			Title:     d.Title,
			UnitPrice: d.UnitPrice,
			Quantity:  d.Quantity,
			Subtotal:  d.Subtotal(),
		})
	}

	return OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalPrice:      o.TotalPrice,
		ShippingAddress: o.ShippingAddress,
		ContactNumber:   o.ContactNumber,
		TrackingNumber:  o.TrackingNumber,
		CreatedAt:       o.CreatedAt,
		Details:         outDetails,
	}
}
