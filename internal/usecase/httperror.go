package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "bookstore/internal/repository"
)

type HTTPError struct {
	Status  int
	Message string
	cause   error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.cause
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// DB起因の500。原因を包んで返す。
// Tx側のリトライ判定がerrors.As経由でSQLSTATEを見られるようにするため、
// 生のDBエラーを握りつぶさない。
func wrapDBError(err error) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Message: "db error",
		cause:   err,
	}
}

// リトライしても競合が消えなかったときは409で返す
func asConflictIfTxExhausted(err error) error {
	if errors.Is(err, repo.ErrTxConflict) {
		return NewHTTPError(http.StatusConflict, "conflict, please retry")
	}
	return err
}

// 在庫不足は残数を入れて返す
func insufficientStockMessage(available int64) string {
	return fmt.Sprintf("only %d copies available in stock", available)
}
