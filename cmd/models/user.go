package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FullName     string `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email        string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         string `gorm:"column:role;size:50;not null" json:"role"`
	Phone        string `gorm:"column:phone;size:20" json:"phone"`

	Patient *PatientProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"patient,omitempty"`
	Doctor  *DoctorProfile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"doctor,omitempty"`
}

type PatientProfile struct {
	gorm.Model
	UserID      uint       `gorm:"column:user_id;not null;index" json:"user_id"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth;type:date" json:"date_of_birth,omitempty"`
	Gender      string     `gorm:"column:gender;size:10" json:"gender,omitempty"`
	Address     string     `gorm:"column:address;size:500" json:"address,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (PatientProfile) TableName() string {
	return "patient_profiles"
}

type DoctorProfile struct {
	gorm.Model
	UserID          uint           `gorm:"column:user_id;not null;index" json:"user_id"`
	SpecialtyID     *uint          `gorm:"column:specialty_id;index" json:"specialty_id,omitempty"`
	LicenseNumber   string         `gorm:"column:license_number;size:100" json:"license_number"`
	Bio             string         `gorm:"column:bio;type:text" json:"bio,omitempty"`
	ConsultationFee float64        `gorm:"column:consultation_fee;not null;default:0" json:"consultation_fee"`
	Qualifications  pq.StringArray `gorm:"column:qualifications;type:text[]" json:"qualifications,omitempty"`

	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Specialty *Specialty `gorm:"foreignKey:SpecialtyID" json:"specialty,omitempty"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}

type Specialty struct {
	gorm.Model
	Name        string `gorm:"column:name;size:255;not null;uniqueIndex" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description,omitempty"`
}

func (Specialty) TableName() string {
	return "specialties"
}
