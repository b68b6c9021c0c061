package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/cmd/utils"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/doctors", h.GetDoctors).Methods("GET")
	router.HandleFunc("/doctors/{id}", h.GetDoctor).Methods("GET")
	router.HandleFunc("/patients/{id}", h.GetPatient).Methods("GET")
	router.HandleFunc("/specialties", h.GetSpecialties).Methods("GET")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user models.User
	result := h.db.Where("email = ?", loginRequest.Email).First(&user)
	if result.Error != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := utils.GenerateJWT(user.ID, user.Role, 125*time.Minute)
	if err != nil {
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"message":      "Login successful",
		"access_token": accessToken,
		"user_id":      user.ID,
		"role":         user.Role,
	}

	switch user.Role {
	case "doctor":
		var doctor models.DoctorProfile
		if err := h.db.Where("user_id = ?", user.ID).First(&doctor).Error; err == nil {
			response["doctor_id"] = doctor.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Error fetching doctor profile", http.StatusInternalServerError)
			return
		}
	case "patient":
		var patient models.PatientProfile
		if err := h.db.Where("user_id = ?", user.ID).First(&patient).Error; err == nil {
			response["patient_id"] = patient.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Error fetching patient profile", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var registerRequest struct {
		FullName        string   `json:"full_name"`
		Email           string   `json:"email"`
		Password        string   `json:"password"`
		Phone           string   `json:"phone"`
		Role            string   `json:"role"`
		SpecialtyID     *uint    `json:"specialty_id"`
		LicenseNumber   string   `json:"license_number"`
		ConsultationFee float64  `json:"consultation_fee"`
		Qualifications  []string `json:"qualifications"`
		Gender          string   `json:"gender"`
		Address         string   `json:"address"`
	}

	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if registerRequest.FullName == "" || registerRequest.Email == "" || registerRequest.Password == "" || registerRequest.Role == "" {
		http.Error(w, "full_name, email, password and role are required", http.StatusUnprocessableEntity)
		return
	}
	if registerRequest.Role != "patient" && registerRequest.Role != "doctor" && registerRequest.Role != "admin" {
		http.Error(w, "Role must be patient, doctor or admin", http.StatusUnprocessableEntity)
		return
	}

	var existingUser models.User
	if result := h.db.Where("email = ?", registerRequest.Email).First(&existingUser); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		http.Error(w, "Email is already in use", http.StatusConflict)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		FullName:     registerRequest.FullName,
		Email:        registerRequest.Email,
		PasswordHash: string(hashedPassword),
		Role:         registerRequest.Role,
		Phone:        registerRequest.Phone,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		switch registerRequest.Role {
		case "patient":
			patient := models.PatientProfile{
				UserID:  user.ID,
				Gender:  registerRequest.Gender,
				Address: registerRequest.Address,
			}
			return tx.Create(&patient).Error
		case "doctor":
			doctor := models.DoctorProfile{
				UserID:          user.ID,
				SpecialtyID:     registerRequest.SpecialtyID,
				LicenseNumber:   registerRequest.LicenseNumber,
				ConsultationFee: registerRequest.ConsultationFee,
				Qualifications:  pq.StringArray(registerRequest.Qualifications),
			}
			return tx.Create(&doctor).Error
		}
		return nil
	})
	if err != nil {
		http.Error(w, "Error creating user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Registration successful",
		"user_id": user.ID,
	})
}

func (h *Handler) GetDoctors(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.DoctorProfile{}).Preload("User").Preload("Specialty")

	if specialtyID := r.URL.Query().Get("specialty_id"); specialtyID != "" {
		query = query.Where("specialty_id = ?", specialtyID)
	}

	var total int64
	query.Count(&total)

	var doctors []models.DoctorProfile
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&doctors).Error; err != nil {
		http.Error(w, "Error retrieving doctors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"doctors":     doctors,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	var doctor models.DoctorProfile
	if err := h.db.Preload("User").Preload("Specialty").First(&doctor, doctorID).Error; err != nil {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doctor)
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}

	var patient models.PatientProfile
	if err := h.db.Preload("User").First(&patient, patientID).Error; err != nil {
		http.Error(w, "Patient not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patient)
}

func (h *Handler) GetSpecialties(w http.ResponseWriter, r *http.Request) {
	var specialties []models.Specialty
	if err := h.db.Order("name").Find(&specialties).Error; err != nil {
		http.Error(w, "Error retrieving specialties", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(specialties)
}
