package models

import (
	"time"
)

// Provider-side payment record states. These track the checkout itself; the
// appointment's payment_status only moves to paid on a successful callback.
const (
	ProviderPaymentPending   = "pending"
	ProviderPaymentCompleted = "completed"
	ProviderPaymentFailed    = "failed"
)

type Payment struct {
	PaymentID     string     `gorm:"column:payment_id;primaryKey;size:36" json:"payment_id"`
	// One payment record per appointment; concurrent checkout attempts race on
	// this index and the loser adopts the winner's row.
	AppointmentID string     `gorm:"column:appointment_id;size:36;not null;uniqueIndex" json:"appointment_id"`
	OrderCode     int64      `gorm:"column:order_code;not null" json:"order_code"`
	TotalAmount   float64    `gorm:"column:total_amount;not null" json:"total_amount"`
	Description   string     `gorm:"column:description;size:255" json:"description"`
	Status        string     `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	PaymentLinkID string     `gorm:"column:payment_link_id;size:64;index" json:"payment_link_id"`
	CheckoutURL   string     `gorm:"column:checkout_url;size:500" json:"checkout_url"`
	QRCode        string     `gorm:"column:qr_code;type:text" json:"qr_code,omitempty"`
	PaidAt        *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Appointment *Appointment `gorm:"foreignKey:AppointmentID;references:AppointmentID" json:"appointment,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) IsPaid() bool {
	return p.Status == ProviderPaymentCompleted
}
