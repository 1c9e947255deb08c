package httppresentation

import (
	"net/http"

	apppayment "github.com/Zhima-Mochi/minishop-storefront/internal/application/payment"
)

type paymentCallbackRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	Status    string `json:"status" validate:"required"`
	Reference string `json:"reference"`
}

type paymentCallbackResponse struct {
	OrderID       string `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
	Replayed      bool   `json:"replayed"`
}

func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	if !h.webhookAuthorized(r) {
		writeError(w, http.StatusUnauthorized, errCodeWebhookRejected, "invalid webhook secret")
		return
	}
	var req paymentCallbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	res, err := h.svc.Payments.Execute(r.Context(), apppayment.RecordPaymentCommand{
		OrderID:   req.OrderID,
		Status:    req.Status,
		Reference: req.Reference,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentCallbackResponse{
		OrderID:       res.Order.ID,
		PaymentStatus: string(res.Order.PaymentStatus),
		Replayed:      res.Replayed,
	})
}
