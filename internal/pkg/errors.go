package pkg

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrConditionNotMet  = errors.New("condition not met")
	ErrNoAccessRights   = errors.New("no access rights")
	ErrInvalidRequest   = errors.New("invalid request")

	// ErrCapacityExceeded 人数已满，归类为 ConditionNotMet
	ErrCapacityExceeded = fmt.Errorf("%w: participant limit reached", ErrConditionNotMet)
	// ErrContention 同一活动的容量校验正被其他请求占用，调用方可以重试
	ErrContention = errors.New("event is busy, retry later")
)

// IsRetryable 只有锁竞争可以重试，业务校验失败重试没有意义
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention)
}
