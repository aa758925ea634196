// Package nets implements the QR payment provider. A QR code is requested
// up front; the customer scans it out-of-band and the storefront polls the
// provider until the transaction reaches a terminal state.
package nets

import (
	"context"
	"strings"
)

// Status is the three-way classification of a provider status response.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
	StatusPending Status = "pending"
)

// TxnData is the provider's per-transaction payload, shared by the QR
// request and status query responses.
type TxnData struct {
	ResponseCode      string `json:"response_code"`
	TxnStatus         int    `json:"txn_status"`
	PaymentStatus     int    `json:"payment_status"`
	TxnStatusDesc     string `json:"txn_status_desc"`
	PaymentStatusDesc string `json:"payment_status_desc"`
	ErrorMessage      string `json:"error_message"`

	QRCode        string `json:"qr_code"`
	RetrievalRef  string `json:"txn_retrieval_ref"`
	QRID          string `json:"txn_nets_qr_id"`
	NetworkStatus int    `json:"network_status"`
}

// QR is a successfully generated payment QR code.
type QR struct {
	// CodeBase64 is the PNG image, base64-encoded.
	CodeBase64 string

	// RetrievalRef keys all subsequent status queries for this attempt.
	RetrievalRef string

	// TxnID is the merchant transaction id the code was requested under.
	TxnID string

	QRID          string
	NetworkStatus int
}

// StatusResult pairs a classification with the raw provider payload.
type StatusResult struct {
	Status Status
	Data   TxnData
}

// QueryRef identifies a transaction for status queries. RetrievalRef is
// required; the others are forwarded when known.
type QueryRef struct {
	RetrievalRef string
	TxnID        string
	QRID         string
}

// Provider is the QR payment contract the checkout flow depends on.
type Provider interface {
	// RequestQR asks the provider for a scannable code covering amount
	// dollars (formatted to 2dp). Retryable transport failures are retried
	// once; any other failure, or a response without a usable QR, is
	// surfaced as an error and nothing is staged.
	RequestQR(ctx context.Context, amountInDollars string) (*QR, error)

	// QueryStatus performs a single status poll and classifies it. It has
	// no side effects.
	QueryStatus(ctx context.Context, ref QueryRef) (*StatusResult, error)

	// Stream polls the provider on a fixed interval and delivers each
	// classified result on the returned channel. The channel closes after
	// the first terminal result (success or fail), after the overall
	// budget elapses (delivered as fail), or when ctx is cancelled.
	Stream(ctx context.Context, ref QueryRef) <-chan StatusResult
}

var successVocab = []string{"success", "approved", "completed", "paid"}
var failVocab = []string{"fail", "decline", "timeout", "expired", "cancel"}

// Classify maps a provider payload to success, fail or pending. A non-"00"
// response code always fails; numeric status 1 or success vocabulary in
// either description wins next; numeric 3/4/5 or failure vocabulary fails;
// everything else is still pending.
func Classify(data TxnData) Status {
	if data.ResponseCode != "" && data.ResponseCode != "00" {
		return StatusFail
	}

	statusText := strings.ToLower(data.TxnStatusDesc)
	paymentText := strings.ToLower(data.PaymentStatusDesc)

	if data.TxnStatus == 1 || data.PaymentStatus == 1 ||
		containsAny(statusText, successVocab) || containsAny(paymentText, successVocab) {
		return StatusSuccess
	}

	if data.TxnStatus == 3 || data.TxnStatus == 4 || data.TxnStatus == 5 ||
		containsAny(statusText, failVocab) || containsAny(paymentText, failVocab) {
		return StatusFail
	}

	return StatusPending
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
