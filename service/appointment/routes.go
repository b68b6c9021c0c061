package appointment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/slot"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type AppointmentHandler struct {
	db     *gorm.DB
	engine *Engine
}

func NewAppointmentHandler(db *gorm.DB, engine *Engine) *AppointmentHandler {
	return &AppointmentHandler{db: db, engine: engine}
}

func (h *AppointmentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/appointments/book", h.BookAppointment).Methods("POST")
	router.HandleFunc("/appointments", h.GetAllAppointments).Methods("GET")
	router.HandleFunc("/appointments/{id}", h.GetAppointment).Methods("GET")
	router.HandleFunc("/appointments/{id}/status", h.UpdateStatus).Methods("PATCH")
	router.HandleFunc("/appointments/{id}", h.DeleteAppointment).Methods("DELETE")
	router.HandleFunc("/appointments/patient/{patientId}", h.GetPatientAppointments).Methods("GET")
	router.HandleFunc("/appointments/doctor/{doctorId}", h.GetDoctorAppointments).Methods("GET")
}

// BookAppointment reserves a slot for a patient. A full slot returns 409 so
// the client knows to refresh the slot list rather than retry.
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var bookingRequest struct {
		TimeSlotID uint   `json:"time_slot_id"`
		PatientID  uint   `json:"patient_id"`
		Reason     string `json:"reason"`
	}

	if err := json.NewDecoder(r.Body).Decode(&bookingRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusUnprocessableEntity)
		return
	}

	if bookingRequest.TimeSlotID == 0 || bookingRequest.PatientID == 0 {
		http.Error(w, "time_slot_id and patient_id are required", http.StatusUnprocessableEntity)
		return
	}
	if len(bookingRequest.Reason) > 500 {
		http.Error(w, "Reason must be at most 500 characters", http.StatusUnprocessableEntity)
		return
	}

	appt, err := h.engine.BookSlot(bookingRequest.TimeSlotID, bookingRequest.PatientID, bookingRequest.Reason)
	if err != nil {
		switch {
		case errors.Is(err, slot.ErrSlotNotFound):
			http.Error(w, "Time slot not found", http.StatusNotFound)
		case errors.Is(err, ErrPatientNotFound):
			http.Error(w, "Patient not found", http.StatusNotFound)
		case errors.Is(err, slot.ErrSlotFull):
			http.Error(w, "Time slot is fully booked", http.StatusConflict)
		default:
			http.Error(w, "Error booking appointment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Appointment booked successfully",
		"data":    appt,
	})
}

func (h *AppointmentHandler) GetAllAppointments(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100

	query := h.db.Model(&models.Appointment{}).Preload("Patient").Preload("Doctor")

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if date := r.URL.Query().Get("date"); date != "" {
		query = query.Where("DATE(schedule_time) = ?", date)
	}

	var total int64
	query.Count(&total)

	var appointments []models.Appointment
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("schedule_time DESC").Find(&appointments).Error; err != nil {
		http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"appointments": appointments,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
		"total_pages":  (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID := vars["id"]

	var appt models.Appointment
	if err := h.db.Preload("Patient").Preload("Doctor").Preload("TimeSlot").
		Where("appointment_id = ?", appointmentID).First(&appt).Error; err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appt)
}

// UpdateStatus applies a guarded status transition with its slot capacity
// side effects.
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID := vars["id"]

	var statusUpdate struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusUnprocessableEntity)
		return
	}

	switch statusUpdate.Status {
	case models.AppointmentPending, models.AppointmentConfirmed,
		models.AppointmentCancelled, models.AppointmentCompleted:
	default:
		http.Error(w, "Unknown status", http.StatusUnprocessableEntity)
		return
	}

	appt, err := h.engine.UpdateStatus(appointmentID, statusUpdate.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			http.Error(w, "Appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, "Invalid status transition", http.StatusBadRequest)
		case errors.Is(err, slot.ErrSlotFull):
			http.Error(w, "Time slot is fully booked", http.StatusConflict)
		default:
			http.Error(w, "Error updating appointment status", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Appointment status updated successfully",
		"data":    appt,
	})
}

func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID := vars["id"]

	if err := h.engine.Delete(appointmentID); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			http.Error(w, "Appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error deleting appointment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Appointment deleted successfully",
	})
}

func (h *AppointmentHandler) GetPatientAppointments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID, err := strconv.ParseUint(vars["patientId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}
	h.listAppointmentsFor(w, r, "patient_id = ?", patientID, "Doctor")
}

func (h *AppointmentHandler) GetDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := strconv.ParseUint(vars["doctorId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}
	h.listAppointmentsFor(w, r, "doctor_id = ?", doctorID, "Patient")
}

func (h *AppointmentHandler) listAppointmentsFor(w http.ResponseWriter, r *http.Request, condition string, id uint64, preload string) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100

	query := h.db.Model(&models.Appointment{}).Where(condition, id).
		Preload(preload).Preload("TimeSlot")

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var appointments []models.Appointment
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("schedule_time DESC").Find(&appointments).Error; err != nil {
		http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"appointments": appointments,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
		"total_pages":  (total + int64(pageSize) - 1) / int64(pageSize),
	})
}
