package usecase_test

import (
	"context"
	"sync"
	"testing"

	"ecapp/internal/authz"
	"ecapp/internal/domain/event"
	"ecapp/internal/domain/model"
	"ecapp/internal/infra/momo"
	"ecapp/internal/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MoMoクライアントのモック
type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) CreatePayment(ctx context.Context, req momo.PaymentRequest) (momo.PaymentResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(momo.PaymentResponse), args.Error(1)
}

func (m *GatewayMock) VerifyCallback(p momo.CallbackPayload) bool {
	args := m.Called(p)
	return args.Bool(0)
}

func (m *GatewayMock) QueryStatus(ctx context.Context, orderID, requestID string) (momo.QueryResponse, error) {
	args := m.Called(ctx, orderID, requestID)
	return args.Get(0).(momo.QueryResponse), args.Error(1)
}

// 送ったイベントを覚えておく
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

var (
	customer1 = authz.Principal{UserID: 1, Role: model.RoleCustomer}
	customer2 = authz.Principal{UserID: 2, Role: model.RoleCustomer}
	admin     = authz.Principal{UserID: 99, Role: model.RoleAdmin}
	staff     = authz.Principal{UserID: 98, Role: model.RoleCustomer, IsStaff: true}
)

func testCustomer() usecase.CustomerInfo {
	return usecase.CustomerInfo{
		FullName: "Nguyen Van A",
		Phone:    "0901234567",
		Email:    "a@example.com",
		Address:  "1 Le Loi",
		City:     "Ho Chi Minh",
		District: "District 1",
	}
}

func requireHTTPStatus(t *testing.T, err error, status int) *usecase.HTTPError {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %T: %v", err, err)
	require.Equal(t, status, he.Status, he.Message)
	return he
}

func ptr[T any](v T) *T {
	return &v
}
