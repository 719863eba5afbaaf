package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Delay(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, 800*time.Millisecond, p.Delay(3))

	p.MaxDelay = 300 * time.Millisecond
	assert.Equal(t, 300*time.Millisecond, p.Delay(3))

	assert.Equal(t, time.Duration(0), Policy{}.Delay(2))
}

func TestPolicy_Do(t *testing.T) {
	errBoom := errors.New("boom")

	testCases := []struct {
		name        string
		policy      Policy
		failures    int
		fnErr       error
		wantCalls   int
		wantErr     error
		wantSuccess bool
	}{
		{
			name:        "第一次成功",
			policy:      Policy{MaxAttempts: 3},
			failures:    0,
			fnErr:       errBoom,
			wantCalls:   1,
			wantSuccess: true,
		},
		{
			name:        "重试后成功",
			policy:      Policy{MaxAttempts: 3},
			failures:    2,
			fnErr:       errBoom,
			wantCalls:   3,
			wantSuccess: true,
		},
		{
			name:      "用尽次数返回最后的错误",
			policy:    Policy{MaxAttempts: 3},
			failures:  10,
			fnErr:     errBoom,
			wantCalls: 3,
			wantErr:   errBoom,
		},
		{
			name:      "永久错误不重试",
			policy:    Policy{MaxAttempts: 3},
			failures:  10,
			fnErr:     Permanent(errBoom),
			wantCalls: 1,
			wantErr:   errBoom,
		},
		{
			name: "IsRetryable 拒绝",
			policy: Policy{MaxAttempts: 3, IsRetryable: func(err error) bool {
				return false
			}},
			failures:  10,
			fnErr:     errBoom,
			wantCalls: 1,
			wantErr:   errBoom,
		},
		{
			name:      "MaxAttempts 为 0 至少执行一次",
			policy:    Policy{},
			failures:  10,
			fnErr:     errBoom,
			wantCalls: 1,
			wantErr:   errBoom,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := tc.policy.Do(context.Background(), func(ctx context.Context) error {
				calls++
				if calls <= tc.failures {
					return tc.fnErr
				}
				return nil
			})
			assert.Equal(t, tc.wantCalls, calls)
			if tc.wantSuccess {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPolicy_DoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour}

	calls := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}
