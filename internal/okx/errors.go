package okx

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIError 表示交易所已受理请求但返回业务失败（确定性拒绝，不应重试）。
type APIError struct {
	Op    string
	Code  string
	Msg   string
	SCode string
	SMsg  string
}

func (e *APIError) Error() string {
	if e.SCode != "" {
		return fmt.Sprintf("%s: okx rejected: code=%s msg=%s sCode=%s sMsg=%s", e.Op, e.Code, e.Msg, e.SCode, e.SMsg)
	}
	return fmt.Sprintf("%s: okx error: code=%s msg=%s", e.Op, e.Code, e.Msg)
}

// HTTPError 表示传输层或网关层失败。
type HTTPError struct {
	Op     string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.Status, e.Body)
}

// Retryable 判断 HTTP 状态码是否属于瞬时失败。
func (e *HTTPError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// IsRetryable 区分瞬时传输失败与确定性拒绝。
// 网络错误与 429/5xx 可重试；交易所业务拒绝（参数错误、余额不足等）不可重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
