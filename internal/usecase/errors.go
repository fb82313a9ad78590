package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// usecaseからhandlerへ渡す唯一のエラー型
type HTTPError struct {
	Status  int
	Message string
	Details map[string]any
	cause   error
}

func (e *HTTPError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.cause
}

// 500系のログ用。レスポンスには出さない
func (e *HTTPError) Cause() error {
	return e.cause
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func NewHTTPErrorWithDetails(status int, message string, details map[string]any) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Details: details,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 予期しないDBエラー。原因はログにだけ残す
func errDB(cause error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Message: "db error", cause: cause}
}

// HTTPErrorならそのまま、それ以外はdb error
func passOrDB(err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return errDB(err)
}
