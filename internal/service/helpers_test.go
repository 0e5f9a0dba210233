package service

import (
	"context"
	"io"
	"sync"

	"wallet-pos-bridge/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// recordingListener captures published payloads for assertions.
type recordingListener struct {
	mu       sync.Mutex
	payloads []any
}

func (r *recordingListener) listen(_ context.Context, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingListener) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func (r *recordingListener) last() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.payloads) == 0 {
		return nil
	}
	return r.payloads[len(r.payloads)-1]
}

func subscribeRecorder(bus ports.EventBus, event string) *recordingListener {
	r := &recordingListener{}
	bus.Subscribe(event, r.listen)
	return r
}

// decimalEq matches a decimal.Decimal by value, ignoring exponent.
type decimalEq struct {
	want decimal.Decimal
}

func eqDecimal(s string) gomock.Matcher {
	return decimalEq{want: decimal.RequireFromString(s)}
}

func (m decimalEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string {
	return "is decimal " + m.want.String()
}
