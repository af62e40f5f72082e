package e2e

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

// checkoutの基本往復。
// 在庫減算、単価の凍結、カートのクリア、同一キーの再送までを通しで見る。
func Test_Checkout_Flow_StockAndPriceFreeze(t *testing.T) {
	ctx := context.Background()
	c := NewTestClient(t)
	db := openDB(t)

	userID := uniqueUserID()
	access := mintToken(t, userID, "USER")

	name := "E2E-Checkout-" + time.Now().Format("20060102-150405.000000000")
	bookID := seedBook(t, db, ctx, name, 1000, 5)

	addToCart(t, c, ctx, access, bookID, 2)

	key := "e2e-checkout-" + time.Now().Format("150405.000000000")
	order := placeOrder(t, c, ctx, access, key)
	if order.ID <= 0 {
		t.Fatalf("order id should be > 0: order=%+v", order)
	}
	if order.Status != "PENDING" {
		t.Fatalf("status=%s want=PENDING", order.Status)
	}
	if order.TotalPrice != 2000 {
		t.Fatalf("total_price=%d want=2000", order.TotalPrice)
	}
	if len(order.Details) != 1 || order.Details[0].UnitPrice != 1000 || order.Details[0].Quantity != 2 {
		t.Fatalf("details unexpected: %+v", order.Details)
	}

	// 在庫は5→3
	if got := bookStock(t, db, ctx, bookID); got != 3 {
		t.Fatalf("stock=%d want=3", got)
	}

	// カートは空になっている
	resp, body := c.doJSON(ctx, t, http.MethodGet, "/cart", access, nil)
	requireStatus(t, resp, http.StatusOK, body)
	cart := mustDecodeCart(t, body)
	if len(cart.Items) != 0 {
		t.Fatalf("cart should be empty after checkout: %+v", cart.Items)
	}

	// 値上げしても確定済みの注文は動かない。同一キーの再送は同じ注文を返す。
	if _, err := db.ExecContext(ctx, `update books set price = 1500 where id = $1`, bookID); err != nil {
		t.Fatalf("price update failed: %v", err)
	}
	replay := placeOrder(t, c, ctx, access, key)
	if replay.ID != order.ID {
		t.Fatalf("replay order id=%d want=%d", replay.ID, order.ID)
	}
	if replay.TotalPrice != 2000 {
		t.Fatalf("replay total_price=%d want=2000", replay.TotalPrice)
	}

	// 再送で在庫が二重に減っていないこと
	if got := bookStock(t, db, ctx, bookID); got != 3 {
		t.Fatalf("stock after replay=%d want=3", got)
	}
}

// キャンセルで予約した数量がそのまま戻る。二度目のキャンセルは遷移エラー。
func Test_CancelOrder_RestoresStock(t *testing.T) {
	ctx := context.Background()
	c := NewTestClient(t)
	db := openDB(t)

	userID := uniqueUserID()
	access := mintToken(t, userID, "USER")

	name := "E2E-Cancel-" + time.Now().Format("20060102-150405.000000000")
	bookID := seedBook(t, db, ctx, name, 800, 4)

	addToCart(t, c, ctx, access, bookID, 3)
	key := "e2e-cancel-" + time.Now().Format("150405.000000000")
	order := placeOrder(t, c, ctx, access, key)

	if got := bookStock(t, db, ctx, bookID); got != 1 {
		t.Fatalf("stock=%d want=1", got)
	}

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/orders/"+toStr(order.ID)+"/cancel", access, nil)
	requireStatus(t, resp, http.StatusOK, body)
	cancelled := mustDecodeOrder(t, body)
	if cancelled.Status != "CANCELLED" {
		t.Fatalf("status=%s want=CANCELLED", cancelled.Status)
	}

	// 在庫は元通り
	if got := bookStock(t, db, ctx, bookID); got != 4 {
		t.Fatalf("stock after cancel=%d want=4", got)
	}

	// CANCELLEDからは動かせない。在庫も増えない。
	resp, body = c.doJSON(ctx, t, http.MethodPost, "/orders/"+toStr(order.ID)+"/cancel", access, nil)
	requireStatus(t, resp, http.StatusConflict, body)
	e := mustDecodeError(t, body)
	if !strings.Contains(e.Error, "invalid transition") {
		t.Fatalf("error=%q want contains %q", e.Error, "invalid transition")
	}
	if got := bookStock(t, db, ctx, bookID); got != 4 {
		t.Fatalf("stock after double cancel=%d want=4", got)
	}
}

// 確定後に本が論理削除されても、キャンセルは在庫を戻せる
func Test_CancelOrder_SoftDeletedBook_StillRestoresStock(t *testing.T) {
	ctx := context.Background()
	c := NewTestClient(t)
	db := openDB(t)

	userID := uniqueUserID()
	access := mintToken(t, userID, "USER")

	name := "E2E-CancelDeleted-" + time.Now().Format("20060102-150405.000000000")
	bookID := seedBook(t, db, ctx, name, 500, 2)

	addToCart(t, c, ctx, access, bookID, 1)
	key := "e2e-cancel-deleted-" + time.Now().Format("150405.000000000")
	order := placeOrder(t, c, ctx, access, key)

	if got := bookStock(t, db, ctx, bookID); got != 1 {
		t.Fatalf("stock=%d want=1", got)
	}

	softDeleteBook(t, db, ctx, bookID)

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/orders/"+toStr(order.ID)+"/cancel", access, nil)
	requireStatus(t, resp, http.StatusOK, body)

	if got := bookStock(t, db, ctx, bookID); got != 2 {
		t.Fatalf("stock after cancel=%d want=2", got)
	}
}
