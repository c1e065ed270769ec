package notify

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadhook/pkg/pcm"
	"github.com/sells-group/leadhook/pkg/twilio"
)

// --- Twilio Mock ---

type mockSMSClient struct {
	mock.Mock
}

func (m *mockSMSClient) SendMessage(ctx context.Context, req twilio.MessageRequest) (*twilio.Message, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twilio.Message), args.Error(1)
}

// --- PCM Mock ---

type mockCRMClient struct {
	mock.Mock
}

func (m *mockCRMClient) CreateLead(ctx context.Context, lead any) (int, error) {
	args := m.Called(ctx, lead)
	return args.Int(0), args.Error(1)
}

func (m *mockCRMClient) SendSMS(ctx context.Context, req pcm.SMSRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockCRMClient) CreateTask(ctx context.Context, task pcm.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}
