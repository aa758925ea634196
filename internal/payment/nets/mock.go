package nets

import (
	"context"
	"fmt"
)

// MockProvider is a mock QR provider for testing.
type MockProvider struct {
	// RequestQRFunc allows customizing QR generation behavior
	RequestQRFunc func(ctx context.Context, amountInDollars string) (*QR, error)

	// QueryStatusFunc allows customizing single-poll behavior
	QueryStatusFunc func(ctx context.Context, ref QueryRef) (*StatusResult, error)

	// StreamFunc allows customizing the poll stream
	StreamFunc func(ctx context.Context, ref QueryRef) <-chan StatusResult

	// CallLog tracks method calls for test assertions
	CallLog []string
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{CallLog: []string{}}
}

// RequestQR returns a canned QR payload.
func (m *MockProvider) RequestQR(ctx context.Context, amountInDollars string) (*QR, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("RequestQR(%s)", amountInDollars))

	if m.RequestQRFunc != nil {
		return m.RequestQRFunc(ctx, amountInDollars)
	}

	return &QR{
		CodeBase64:   "bW9jay1xcg==",
		RetrievalRef: "mock-retrieval-ref",
		TxnID:        "mock-txn-id",
		QRID:         "mock-qr-id",
	}, nil
}

// QueryStatus returns a canned success result.
func (m *MockProvider) QueryStatus(ctx context.Context, ref QueryRef) (*StatusResult, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("QueryStatus(%s)", ref.RetrievalRef))

	if m.QueryStatusFunc != nil {
		return m.QueryStatusFunc(ctx, ref)
	}

	return &StatusResult{
		Status: StatusSuccess,
		Data:   TxnData{ResponseCode: "00", TxnStatus: 1},
	}, nil
}

// Stream emits one success result and closes.
func (m *MockProvider) Stream(ctx context.Context, ref QueryRef) <-chan StatusResult {
	m.CallLog = append(m.CallLog, fmt.Sprintf("Stream(%s)", ref.RetrievalRef))

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, ref)
	}

	out := make(chan StatusResult, 1)
	out <- StatusResult{Status: StatusSuccess, Data: TxnData{ResponseCode: "00", TxnStatus: 1}}
	close(out)
	return out
}
