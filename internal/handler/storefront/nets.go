package storefront

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/payment/nets"
	"github.com/rhobart/minimart/internal/service"
	"github.com/rhobart/minimart/internal/session"
)

// netsQRWindowSeconds is how long the QR page counts down before sending the
// shopper to the failure page. It matches the provider-side polling budget.
const netsQRWindowSeconds = 300

// errNoPaymentInProgress is returned by the status endpoints when the
// session carries no staged QR payment attempt.
var errNoPaymentInProgress = &domain.Error{Code: domain.EINVALID, Message: "No payment in progress"}

// NetsHandler serves the QR payment surface: the QR page itself, the live
// status stream the page subscribes to, and the terminal outcome pages.
type NetsHandler struct {
	checkout service.CheckoutService
	provider nets.Provider
	metrics  *middleware.Metrics
	renderer *handler.Renderer
}

// NewNetsHandler creates a new QR payment handler.
func NewNetsHandler(checkout service.CheckoutService, provider nets.Provider, metrics *middleware.Metrics, renderer *handler.Renderer) *NetsHandler {
	return &NetsHandler{checkout: checkout, provider: provider, metrics: metrics, renderer: renderer}
}

// ShowQR handles GET /checkout/nets. It requests a fresh QR code for the
// staged checkout, so every visit starts a new payment attempt.
func (h *NetsHandler) ShowQR(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess.PendingCheckout() == nil || sess.Cart().IsEmpty() {
		sess.Flash(session.SeverityError, "Your checkout session has expired. Please try again.")
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	qr, err := h.checkout.GenerateNetsQR(r.Context(), sess)
	if err != nil {
		// A QR that could not be generated is a failed payment attempt, not
		// a checkout form problem.
		if handler.ErrorStatus(err) >= 500 {
			middleware.GetLogger(r.Context()).Error("request failed", "error", err)
		}
		data := BaseTemplateData(r)
		data["Message"] = domain.ErrorMessage(err)
		h.renderer.RenderHTTP(w, "nets-fail", data)
		return
	}

	data := BaseTemplateData(r)
	data["Cart"] = sess.Cart()
	data["QRImage"] = "data:image/png;base64," + qr.CodeBase64
	data["RetrievalRef"] = qr.RetrievalRef
	data["TimerSeconds"] = netsQRWindowSeconds
	h.renderer.RenderHTTP(w, "nets-qr", data)
}

// streamEvent is the wire shape of one status update on the SSE channel.
type streamEvent struct {
	Status string       `json:"status"`
	Data   nets.TxnData `json:"data"`
}

// Stream handles GET /checkout/nets/stream. It relays provider status polls
// to the QR page as server-sent events until the payment reaches a terminal
// state or the client disconnects. This route must not sit behind the
// request timeout middleware.
func (h *NetsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	payment := sess.NetsPayment()
	if payment == nil {
		handler.JSONError(w, r, errNoPaymentInProgress)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		handler.JSONError(w, r, &domain.Error{Code: domain.EINTERNAL, Message: "Streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ref := nets.QueryRef{
		RetrievalRef: payment.RetrievalRef,
		TxnID:        payment.TxnID,
		QRID:         payment.QRID,
	}

	for result := range h.provider.Stream(r.Context(), ref) {
		h.metrics.PaymentPoll(string(result.Status))

		payload, err := json.Marshal(streamEvent{Status: string(result.Status), Data: result.Data})
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}

// Status handles GET /checkout/nets/status, the one-shot JSON fallback for
// clients without SSE support.
func (h *NetsHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	payment := sess.NetsPayment()
	if payment == nil {
		handler.JSONError(w, r, errNoPaymentInProgress)
		return
	}

	result, err := h.provider.QueryStatus(r.Context(), nets.QueryRef{
		RetrievalRef: payment.RetrievalRef,
		TxnID:        payment.TxnID,
		QRID:         payment.QRID,
	})
	if err != nil {
		handler.JSONError(w, r, err)
		return
	}

	h.metrics.PaymentPoll(string(result.Status))
	handler.JSON(w, http.StatusOK, streamEvent{Status: string(result.Status), Data: result.Data})
}

// Success handles GET /checkout/nets/success. The underlying finalize is
// idempotent, so reloading this page never creates a second order.
func (h *NetsHandler) Success(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	firstVisit := sess.NetsCompleted() == nil

	settlement, err := h.checkout.FinalizeNets(r.Context(), sess)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/cart")
		return
	}
	if firstVisit {
		h.metrics.OrderCreated(string(domain.PaymentNets))
	}

	data := BaseTemplateData(r)
	data["OrderNumber"] = settlement.OrderNumber
	h.renderer.RenderHTTP(w, "nets-success", data)
}

// Fail handles GET /checkout/nets/fail. The cart and staged checkout stay
// intact so the shopper can retry with another method.
func (h *NetsHandler) Fail(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	sess.SetNetsPayment(nil)

	data := BaseTemplateData(r)
	data["Message"] = "Payment failed or timed out."
	h.renderer.RenderHTTP(w, "nets-fail", data)
}
