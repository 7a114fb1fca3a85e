package common

import (
	"errors"
	"net/http"
)

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 取得原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is 可以辨識包裝過的預定義錯誤
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// WrapError 以預定義錯誤的代碼與狀態包裝原始錯誤
func WrapError(base *CustomError, err error) *CustomError {
	return &CustomError{
		Code:    base.Code,
		Message: base.Message,
		Status:  base.Status,
		Err:     err,
	}
}

// WrapErrorMessage 同 WrapError，但覆寫錯誤信息
func WrapErrorMessage(base *CustomError, message string, err error) *CustomError {
	e := WrapError(base, err)
	e.Message = message
	return e
}

// AsCustomError 取出錯誤鏈中的 CustomError
func AsCustomError(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest     = "INVALID_REQUEST"      // 400
	ErrCodeNotFound           = "NOT_FOUND"            // 404
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"    // 429
	ErrCodeInvalidScaleTarget = "INVALID_SCALE_TARGET" // 400
	ErrCodeBodyTooLarge       = "BODY_TOO_LARGE"       // 413

	// 解析與分類
	ErrCodeParseFailure          = "PARSE_FAILURE"          // 422
	ErrCodeClassificationFailure = "CLASSIFICATION_FAILURE" // 422

	// 服務器錯誤 (5xx)
	ErrCodeInternalError    = "INTERNAL_ERROR"    // 500
	ErrCodeModelUnavailable = "MODEL_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout   = "GATEWAY_TIMEOUT"   // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest     = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrNotFound           = NewError(ErrCodeNotFound, "recipe not found", http.StatusNotFound, nil)
	ErrTooManyRequests    = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)
	ErrInvalidScaleTarget = NewError(ErrCodeInvalidScaleTarget, "servings must be a positive whole number (1 or more)", http.StatusBadRequest, nil)
	ErrBodyTooLarge       = NewError(ErrCodeBodyTooLarge, "request body too large", http.StatusRequestEntityTooLarge, nil)

	// 解析與分類錯誤
	ErrParseFailure          = NewError(ErrCodeParseFailure, "could not structure the text", http.StatusUnprocessableEntity, nil)
	ErrClassificationFailure = NewError(ErrCodeClassificationFailure, "could not understand the request", http.StatusUnprocessableEntity, nil)

	// 服務器錯誤
	ErrInternalError    = NewError(ErrCodeInternalError, "internal error", http.StatusInternalServerError, nil)
	ErrModelUnavailable = NewError(ErrCodeModelUnavailable, "the recipe model is unavailable right now, please try again shortly", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout   = NewError(ErrCodeGatewayTimeout, "request timeout", http.StatusGatewayTimeout, nil)

	// 快取
	ErrCacheMiss = NewError("CACHE_MISS", "cache miss", http.StatusNotFound, nil)
)
