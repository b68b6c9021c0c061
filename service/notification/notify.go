package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/clinicdesk/clinic-server/cmd/models"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"gorm.io/gorm"
)

// Service fans booking and confirmation events out to push devices and email.
// Every path here is fire-and-forget: a notification failure is logged and
// swallowed, never surfaced as a booking or payment failure.
type Service struct {
	db         *gorm.DB
	expoClient *expo.PushClient
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:         db,
		expoClient: expo.NewPushClient(nil),
	}
}

// AppointmentBooked notifies the doctor that a patient reserved a slot.
func (s *Service) AppointmentBooked(appt *models.Appointment) {
	var doctor models.DoctorProfile
	if err := s.db.Preload("User").First(&doctor, appt.DoctorID).Error; err != nil {
		log.Printf("booking notification: doctor %d lookup failed: %v", appt.DoctorID, err)
		return
	}

	title := "New appointment request"
	body := fmt.Sprintf("A patient requested an appointment on %s.",
		appt.ScheduleTime.Format("Mon 02 Jan 15:04"))

	s.pushToUser(doctor.UserID, title, body, map[string]interface{}{
		"appointment_id": appt.AppointmentID,
	})
}

// AppointmentConfirmed emails both parties after payment confirms a booking.
func (s *Service) AppointmentConfirmed(appt *models.Appointment) {
	var patient models.PatientProfile
	if err := s.db.Preload("User").First(&patient, appt.PatientID).Error; err != nil {
		log.Printf("confirmation notification: patient %d lookup failed: %v", appt.PatientID, err)
		return
	}
	var doctor models.DoctorProfile
	if err := s.db.Preload("User").First(&doctor, appt.DoctorID).Error; err != nil {
		log.Printf("confirmation notification: doctor %d lookup failed: %v", appt.DoctorID, err)
		return
	}

	when := appt.ScheduleTime.Format("Monday 02 January 2006 at 15:04")

	if patient.User != nil && patient.User.Email != "" {
		body := fmt.Sprintf("Your appointment on %s is confirmed.", when)
		if err := sendEmail(patient.User.Email, "Appointment confirmed", body); err != nil {
			log.Printf("error sending confirmation email to patient: %v", err)
		}
	}
	if doctor.User != nil && doctor.User.Email != "" {
		body := fmt.Sprintf("An appointment on %s has been confirmed and paid.", when)
		if err := sendEmail(doctor.User.Email, "Appointment confirmed", body); err != nil {
			log.Printf("error sending confirmation email to doctor: %v", err)
		}
	}

	s.pushToUser(patient.UserID, "Appointment confirmed",
		fmt.Sprintf("Your appointment on %s is confirmed.", when), map[string]interface{}{
			"appointment_id": appt.AppointmentID,
		})
}

// pushToUser sends a push message to every registered device of a user and
// records the attempt in the notification history.
func (s *Service) pushToUser(userID uint, title, body string, data map[string]interface{}) {
	var devices []models.Device
	if err := s.db.Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		log.Printf("error retrieving devices for user %d: %v", userID, err)
		return
	}
	if len(devices) == 0 {
		return
	}

	tokens := make([]string, 0, len(devices))
	for _, device := range devices {
		tokens = append(tokens, device.Token)
	}

	success, err := s.sendExpoNotification(tokens, title, body, data)
	status := "sent"
	if !success || err != nil {
		status = "failed"
	}
	if err != nil {
		log.Printf("error sending push notification to user %d: %v", userID, err)
	}

	dataJSON, _ := json.Marshal(data)
	history := models.NotificationHistory{
		UserID: userID,
		Title:  title,
		Body:   body,
		Data:   string(dataJSON),
		Status: status,
		SentAt: time.Now(),
	}
	if dbErr := s.db.Create(&history).Error; dbErr != nil {
		log.Printf("error creating notification history: %v", dbErr)
	}
}

func (s *Service) sendExpoNotification(tokenStrings []string, title, body string, data map[string]interface{}) (bool, error) {
	var validTokens []expo.ExponentPushToken
	var invalidTokens []string

	for _, tokenString := range tokenStrings {
		pushToken, err := expo.NewExponentPushToken(tokenString)
		if err != nil {
			log.Printf("Invalid push token format %s: %v", tokenString, err)
			invalidTokens = append(invalidTokens, tokenString)
			continue
		}
		validTokens = append(validTokens, pushToken)
	}

	if len(validTokens) == 0 {
		return false, fmt.Errorf("no valid push tokens found")
	}

	var stringData map[string]string
	if data != nil {
		stringData = make(map[string]string)
		for key, value := range data {
			stringData[key] = fmt.Sprintf("%v", value)
		}
	}

	pushMessage := &expo.PushMessage{
		To:       validTokens,
		Body:     body,
		Title:    title,
		Sound:    "default",
		Priority: expo.DefaultPriority,
		Data:     stringData,
	}

	response, err := s.expoClient.Publish(pushMessage)
	if err != nil {
		return false, fmt.Errorf("failed to publish notification: %v", err)
	}

	if validationErr := response.ValidateResponse(); validationErr != nil {
		log.Printf("Push notification validation error: %v", validationErr)
		s.cleanupInvalidTokens(invalidTokens)
		return false, fmt.Errorf("notification validation failed: %v", validationErr)
	}

	if len(invalidTokens) > 0 {
		s.cleanupInvalidTokens(invalidTokens)
	}

	return true, nil
}

func (s *Service) cleanupInvalidTokens(tokens []string) {
	for _, token := range tokens {
		if err := s.db.Where("token = ?", token).Delete(&models.Device{}).Error; err != nil {
			log.Printf("Error cleaning up invalid token %s: %v", token, err)
		} else {
			log.Printf("Cleaned up invalid token: %s", token)
		}
	}
}
