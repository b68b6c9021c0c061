package payment

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/appointment"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResultCodeSuccess is the provider's code for a captured payment. Every
// other code leaves the appointment and its slot untouched.
const ResultCodeSuccess = "00"

const defaultConsultationFee = 500000

var ErrPaymentNotFound = errors.New("payment not found")

// CheckoutCreator is the outbound provider contract the service consumes.
type CheckoutCreator interface {
	CreatePaymentLink(orderCode, amount int64, description string) (*CheckoutResponse, error)
}

// ConfirmationNotifier is told when a payment confirms an appointment, after
// the confirming transaction has committed.
type ConfirmationNotifier interface {
	AppointmentConfirmed(appt *models.Appointment)
}

type Service struct {
	db       *gorm.DB
	client   CheckoutCreator
	notifier ConfirmationNotifier
}

func NewService(db *gorm.DB, client CheckoutCreator) *Service {
	return &Service{db: db, client: client}
}

func (s *Service) WithNotifier(n ConfirmationNotifier) *Service {
	s.notifier = n
	return s
}

// CreatePayment opens a checkout for the appointment's consultation fee.
// Idempotent per appointment: an existing payment record is returned instead
// of opening a second checkout.
func (s *Service) CreatePayment(appointmentID string) (*models.Payment, error) {
	var appt models.Appointment
	if err := s.db.Preload("Doctor").Where("appointment_id = ?", appointmentID).
		First(&appt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, err
	}

	var existing models.Payment
	err := s.db.Where("appointment_id = ?", appointmentID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	amount := int64(defaultConsultationFee)
	if appt.Doctor != nil && appt.Doctor.ConsultationFee > 0 {
		amount = int64(appt.Doctor.ConsultationFee)
	}

	orderCode := rand.Int63n(999999) + 1
	description := "Clinic consultation fee"

	checkout, err := s.client.CreatePaymentLink(orderCode, amount, description)
	if err != nil {
		return nil, err
	}

	payment := models.Payment{
		PaymentID:     uuid.NewString(),
		AppointmentID: appt.AppointmentID,
		OrderCode:     orderCode,
		TotalAmount:   float64(amount),
		Description:   description,
		Status:        models.ProviderPaymentPending,
		PaymentLinkID: checkout.PaymentLinkID,
		CheckoutURL:   checkout.CheckoutURL,
		QRCode:        checkout.QRCode,
	}

	// A concurrent request for the same appointment may have inserted between
	// the existence check and here; the unique index on appointment_id makes
	// the insert a no-op, and the caller gets the winning record back.
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "appointment_id"}},
		DoNothing: true,
	}).Create(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var winner models.Payment
		if err := s.db.Where("appointment_id = ?", appointmentID).First(&winner).Error; err != nil {
			return nil, err
		}
		return &winner, nil
	}

	return &payment, nil
}

// CallbackData is the provider callback the core consumes.
type CallbackData struct {
	PaymentLinkID   string
	Code            string
	Amount          float64
	TransactionTime string
}

// HandleCallback maps the provider's result code onto local payment and
// appointment state. A success code confirms the appointment and marks it
// paid, idempotently; any other code records a failed payment and leaves the
// booked-but-unpaid appointment pending.
func (s *Service) HandleCallback(data CallbackData) error {
	var payment models.Payment
	if err := s.db.Where("payment_link_id = ?", data.PaymentLinkID).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}

	var confirmed *models.Appointment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if data.Code == ResultCodeSuccess {
			now := time.Now()
			payment.Status = models.ProviderPaymentCompleted
			payment.PaidAt = &now
		} else {
			payment.Status = models.ProviderPaymentFailed
		}
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		if data.Code != ResultCodeSuccess {
			return nil
		}

		appt, changed, err := appointment.MarkPaidAndConfirmed(tx, payment.AppointmentID)
		if err != nil {
			return fmt.Errorf("confirming appointment %s: %w", payment.AppointmentID, err)
		}
		if changed {
			confirmed = appt
		}
		return nil
	})
	if err != nil {
		return err
	}

	if confirmed != nil && s.notifier != nil {
		go s.notifier.AppointmentConfirmed(confirmed)
	}
	if confirmed == nil && data.Code == ResultCodeSuccess {
		log.Printf("duplicate payment confirmation for appointment %s ignored", payment.AppointmentID)
	}

	return nil
}
