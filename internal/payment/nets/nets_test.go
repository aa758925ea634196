package nets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		data TxnData
		want Status
	}{
		{"non-00 response code fails", TxnData{ResponseCode: "68"}, StatusFail},
		{"non-00 beats success status", TxnData{ResponseCode: "99", TxnStatus: 1}, StatusFail},
		{"txn status 1 succeeds", TxnData{ResponseCode: "00", TxnStatus: 1}, StatusSuccess},
		{"payment status 1 succeeds", TxnData{ResponseCode: "00", PaymentStatus: 1}, StatusSuccess},
		{"success vocabulary in txn desc", TxnData{TxnStatusDesc: "Transaction Approved"}, StatusSuccess},
		{"paid vocabulary in payment desc", TxnData{PaymentStatusDesc: "PAID"}, StatusSuccess},
		{"completed vocabulary", TxnData{TxnStatusDesc: "completed ok"}, StatusSuccess},
		{"txn status 3 fails", TxnData{ResponseCode: "00", TxnStatus: 3}, StatusFail},
		{"txn status 4 fails", TxnData{TxnStatus: 4}, StatusFail},
		{"txn status 5 fails", TxnData{TxnStatus: 5}, StatusFail},
		{"decline vocabulary fails", TxnData{TxnStatusDesc: "Declined by issuer"}, StatusFail},
		{"timeout vocabulary fails", TxnData{PaymentStatusDesc: "request timeout"}, StatusFail},
		{"cancelled vocabulary fails", TxnData{TxnStatusDesc: "user cancelled"}, StatusFail},
		{"expired vocabulary fails", TxnData{PaymentStatusDesc: "qr expired"}, StatusFail},
		{"empty payload pends", TxnData{}, StatusPending},
		{"unknown status pends", TxnData{ResponseCode: "00", TxnStatus: 2, TxnStatusDesc: "processing"}, StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.data))
		})
	}
}

func qrEnvelope(data TxnData) []byte {
	payload, _ := json.Marshal(map[string]any{
		"result": map[string]any{"data": data},
	})
	return payload
}

func newTestClient(requestURL, queryURL string) *Client {
	return NewClient(Config{
		RequestURL:   requestURL,
		QueryURL:     queryURL,
		APIKey:       "test-key",
		ProjectID:    "test-project",
		TxnID:        "test-txn",
		PollInterval: 5 * time.Millisecond,
		StreamBudget: time.Second,
	}, testLogger())
}

func TestRequestQRSuccess(t *testing.T) {
	var gotAPIKey, gotProject string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("api-key")
		gotProject = r.Header.Get("project-id")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "7.54", body["amt_in_dollars"])

		w.Write(qrEnvelope(TxnData{
			ResponseCode: "00",
			TxnStatus:    1,
			QRCode:       "aW1hZ2U=",
			RetrievalRef: "ref-123",
			QRID:         "qr-456",
		}))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	qr, err := client.RequestQR(context.Background(), "7.54")
	require.NoError(t, err)

	assert.Equal(t, "aW1hZ2U=", qr.CodeBase64)
	assert.Equal(t, "ref-123", qr.RetrievalRef)
	assert.Equal(t, "qr-456", qr.QRID)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, "test-project", gotProject)
}

func TestRequestQRRetriesOnceOnGatewayTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		w.Write(qrEnvelope(TxnData{ResponseCode: "00", TxnStatus: 1, QRCode: "aW1hZ2U=", RetrievalRef: "ref-123"}))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	qr, err := client.RequestQR(context.Background(), "1.00")
	require.NoError(t, err)
	assert.Equal(t, "ref-123", qr.RetrievalRef)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRequestQRDoesNotRetryTwice(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	_, err := client.RequestQR(context.Background(), "1.00")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRequestQRDoesNotRetryNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	_, err := client.RequestQR(context.Background(), "1.00")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRequestQRRejectsPayloadWithoutQR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(qrEnvelope(TxnData{ResponseCode: "00", TxnStatus: 1, ErrorMessage: "no qr today"}))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	_, err := client.RequestQR(context.Background(), "1.00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no qr today")
}

func TestQueryStatusRequiresRetrievalRef(t *testing.T) {
	client := newTestClient("http://unused", "http://unused")
	_, err := client.QueryStatus(context.Background(), QueryRef{})
	require.Error(t, err)
}

func TestQueryStatusClassifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref-123", body["txn_retrieval_ref"])
		assert.Equal(t, "txn-1", body["txn_id"])

		w.Write(qrEnvelope(TxnData{ResponseCode: "00", TxnStatus: 1}))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	res, err := client.QueryStatus(context.Background(), QueryRef{RetrievalRef: "ref-123", TxnID: "txn-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestStreamTerminatesOnSuccessAndStopsPolling(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		if n < 3 {
			w.Write(qrEnvelope(TxnData{ResponseCode: "00", TxnStatus: 2}))
			return
		}
		w.Write(qrEnvelope(TxnData{ResponseCode: "00", TxnStatus: 1}))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var results []StatusResult
	for res := range client.Stream(ctx, QueryRef{RetrievalRef: "ref-123"}) {
		results = append(results, res)
	}

	require.Len(t, results, 3)
	assert.Equal(t, StatusPending, results[0].Status)
	assert.Equal(t, StatusPending, results[1].Status)
	assert.Equal(t, StatusSuccess, results[2].Status)

	// No poll is issued after the terminal event.
	settled := polls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, polls.Load())
}

func TestStreamTerminatesOnFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(qrEnvelope(TxnData{ResponseCode: "00", TxnStatus: 4}))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var results []StatusResult
	for res := range client.Stream(ctx, QueryRef{RetrievalRef: "ref-123"}) {
		results = append(results, res)
	}

	require.Len(t, results, 1)
	assert.Equal(t, StatusFail, results[0].Status)
}

func TestStreamBudgetExhaustionFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(qrEnvelope(TxnData{ResponseCode: "00", TxnStatus: 2}))
	}))
	defer srv.Close()

	client := NewClient(Config{
		RequestURL:   srv.URL,
		QueryURL:     srv.URL,
		PollInterval: 5 * time.Millisecond,
		StreamBudget: 25 * time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var last StatusResult
	for res := range client.Stream(ctx, QueryRef{RetrievalRef: "ref-123"}) {
		last = res
	}
	assert.Equal(t, StatusFail, last.Status)
}

func TestStreamStopsOnCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(qrEnvelope(TxnData{ResponseCode: "00", TxnStatus: 2}))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())

	ch := client.Stream(ctx, QueryRef{RetrievalRef: "ref-123"})

	// Let at least one pending result through, then disconnect.
	<-ch
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}
