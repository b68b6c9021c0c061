package slot

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type SlotHandler struct {
	db *gorm.DB
}

func NewSlotHandler(db *gorm.DB) *SlotHandler {
	return &SlotHandler{db: db}
}

func (h *SlotHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/slots/available", h.GetAvailableSlots).Methods("GET")
	router.HandleFunc("/slots/sync", h.SyncSlots).Methods("POST")
}

type slotResponse struct {
	ID               uint              `json:"id"`
	StartTime        string            `json:"start_time"`
	EndTime          string            `json:"end_time"`
	FormattedTime    map[string]string `json:"formatted_time"`
	MaxCapacity      int               `json:"max_capacity"`
	CurrentBookings  int               `json:"current_bookings"`
	RemainingCapacity int              `json:"remaining_capacity"`
}

// formatTimeSlot derives the display label for a slot's clinic session.
func formatTimeSlot(startTime, endTime string) map[string]string {
	period := "Morning"
	if len(startTime) >= 2 {
		if hour, err := strconv.Atoi(startTime[:2]); err == nil && hour >= 12 {
			period = "Afternoon"
		}
	}
	return map[string]string{
		"time":    startTime + " - " + endTime,
		"period":  period,
		"display": period + " " + startTime + " - " + endTime,
	}
}

// GetAvailableSlots generates missing slots for the window and returns all
// slots per date, fully booked ones included.
func (h *SlotHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.ParseUint(r.URL.Query().Get("doctor_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusUnprocessableEntity)
		return
	}

	fromDate := time.Now()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		fromDate, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusUnprocessableEntity)
			return
		}
	}

	days := generationWindowDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		days, err = strconv.Atoi(daysStr)
		if err != nil {
			http.Error(w, "Invalid days parameter", http.StatusUnprocessableEntity)
			return
		}
		if days < 1 {
			days = 1
		}
		if days > generationWindowDays {
			days = generationWindowDays
		}
	}

	if err := EnsureSlotsForDoctor(h.db, uint(doctorID), fromDate); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			http.Error(w, "Doctor not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error generating time slots", http.StatusInternalServerError)
		return
	}

	data := make(map[string][]slotResponse)
	for i := 1; i <= days; i++ {
		date := time.Date(fromDate.Year(), fromDate.Month(), fromDate.Day()+i,
			0, 0, 0, 0, time.UTC)

		daySlots, err := ListSlots(h.db, uint(doctorID), date)
		if err != nil {
			http.Error(w, "Error retrieving time slots", http.StatusInternalServerError)
			return
		}
		if len(daySlots) == 0 {
			continue
		}

		responses := make([]slotResponse, 0, len(daySlots))
		for _, s := range daySlots {
			responses = append(responses, slotResponse{
				ID:                s.ID,
				StartTime:         s.StartTime,
				EndTime:           s.EndTime,
				FormattedTime:     formatTimeSlot(s.StartTime, s.EndTime),
				MaxCapacity:       s.MaxCapacity,
				CurrentBookings:   s.CurrentBookings,
				RemainingCapacity: s.RemainingCapacity(),
			})
		}
		data[date.Format("2006-01-02")] = responses
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// SyncSlots recounts booking counters from the appointments table.
func (h *SlotHandler) SyncSlots(w http.ResponseWriter, r *http.Request) {
	result, err := SyncBookings(h.db)
	if err != nil {
		http.Error(w, "Error syncing time slots", http.StatusInternalServerError)
		return
	}

	var total int64
	h.db.Model(&models.TimeSlot{}).Count(&total)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":          true,
		"total_slots":      total,
		"marked_full":      result.MarkedFull,
		"marked_available": result.MarkedAvailable,
	})
}
