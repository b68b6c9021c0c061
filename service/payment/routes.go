package payment

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/appointment"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	db       *gorm.DB
	service  *Service
	provider *PayOSClient
}

func NewPaymentHandler(db *gorm.DB, service *Service, provider *PayOSClient) *PaymentHandler {
	return &PaymentHandler{db: db, service: service, provider: provider}
}

func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/payments", h.CreatePayment).Methods("POST")
	router.HandleFunc("/payments/webhook", h.HandleWebhook).Methods("POST")
	router.HandleFunc("/payments/callback", h.HandleReturnCallback).Methods("GET")
	router.HandleFunc("/payments/status", h.GetPaymentStatus).Methods("GET")
}

func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var createRequest struct {
		AppointmentID string `json:"appointment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&createRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusUnprocessableEntity)
		return
	}
	if createRequest.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusUnprocessableEntity)
		return
	}

	payment, err := h.service.CreatePayment(createRequest.AppointmentID)
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrAppointmentNotFound):
			http.Error(w, "Appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrProvider):
			log.Printf("payment provider error: %v", err)
			http.Error(w, "Error initializing payment", http.StatusBadGateway)
		default:
			http.Error(w, "Error creating payment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"payment_id":   payment.PaymentID,
			"order_code":   payment.OrderCode,
			"checkout_url": payment.CheckoutURL,
			"qr_code":      payment.QRCode,
			"amount":       payment.TotalAmount,
		},
	})
}

// HandleWebhook processes the signed provider callback.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("x-payos-signature")
	if !h.provider.VerifyWebhookSignature(body, signature) {
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	var webhookPayload struct {
		Data struct {
			PaymentLinkID       string  `json:"paymentLinkId"`
			Code                string  `json:"code"`
			Amount              float64 `json:"amount"`
			TransactionDateTime string  `json:"transactionDateTime"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &webhookPayload); err != nil {
		http.Error(w, "Error parsing webhook payload", http.StatusBadRequest)
		return
	}
	if webhookPayload.Data.PaymentLinkID == "" || webhookPayload.Data.Code == "" {
		http.Error(w, "Invalid callback data", http.StatusBadRequest)
		return
	}

	err = h.service.HandleCallback(CallbackData{
		PaymentLinkID:   webhookPayload.Data.PaymentLinkID,
		Code:            webhookPayload.Data.Code,
		Amount:          webhookPayload.Data.Amount,
		TransactionTime: webhookPayload.Data.TransactionDateTime,
	})
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			http.Error(w, "Payment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error processing webhook", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleReturnCallback covers the provider's browser redirect after checkout.
func (h *PaymentHandler) HandleReturnCallback(w http.ResponseWriter, r *http.Request) {
	paymentLinkID := r.URL.Query().Get("id")
	code := r.URL.Query().Get("code")
	status := r.URL.Query().Get("status")

	if paymentLinkID != "" && code == ResultCodeSuccess && status == "PAID" {
		err := h.service.HandleCallback(CallbackData{
			PaymentLinkID:   paymentLinkID,
			Code:            code,
			TransactionTime: time.Now().Format(time.RFC3339),
		})
		if err != nil && !errors.Is(err, ErrPaymentNotFound) {
			log.Printf("error processing return callback: %v", err)
		}
	}

	if returnURL := os.Getenv("PAYOS_RETURN_URL"); returnURL != "" {
		http.Redirect(w, r, returnURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Payment callback received",
	})
}

func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("payment_id")
	if paymentID == "" {
		http.Error(w, "payment_id is required", http.StatusUnprocessableEntity)
		return
	}

	var payment models.Payment
	if err := h.db.Where("payment_id = ?", paymentID).First(&payment).Error; err != nil {
		http.Error(w, "Payment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"payment_id":   payment.PaymentID,
			"is_paid":      payment.IsPaid(),
			"paid_at":      payment.PaidAt,
			"status":       payment.Status,
			"amount":       payment.TotalAmount,
			"checkout_url": payment.CheckoutURL,
		},
	})
}
