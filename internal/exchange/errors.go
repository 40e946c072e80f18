package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

var (
	// ErrMaintenance 表示交易所处于维护状态。
	ErrMaintenance = errors.New("exchange on maintenance")
	// ErrUnavailable 表示网络、限流或交易所暂时不可用。
	ErrUnavailable = errors.New("exchange unavailable")
	// ErrAuth 表示凭证无效或权限不足。
	ErrAuth = errors.New("exchange authentication failed")
	// ErrMalformedResponse 表示交易所返回的数据缺少必要字段。
	ErrMalformedResponse = errors.New("exchange returned malformed response")
	// ErrNotSent 表示请求在发出前就已放弃，交易所一定没有收到。
	ErrNotSent = errors.New("exchange request not sent")
)

// IsTransient 判断错误是否属于临时性故障。本工具不自动重试，只用于提示操作者。
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMaintenance)
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		case ccxt.BadResponseErrType,
			ccxt.NullResponseErrType:
			return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		case ccxt.AuthenticationErrorErrType,
			ccxt.PermissionDeniedErrType:
			return fmt.Errorf("%w: %w", ErrAuth, err)
		case ccxt.OnMaintenanceErrType:
			message := strings.TrimSpace(ccxtErr.Message)
			if message == "" {
				message = "exchange under maintenance"
			}
			return fmt.Errorf("%w: %s", ErrMaintenance, message)
		default:
			return err
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}
