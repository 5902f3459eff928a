package model

import (
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Patient struct {
	Base
	ChartNumber              string     `db:"chart_number" json:"chart_number"`
	Name                     string     `db:"name" json:"name"`
	Gender                   Gender     `db:"gender" json:"gender"`
	BirthDate                *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	IDCardNumber             string     `db:"id_card_number" json:"id_card_number"`
	Phone                    string     `db:"phone" json:"phone"`
	Mobile                   string     `db:"mobile" json:"mobile"`
	Address                  string     `db:"address" json:"address"`
	Email                    string     `db:"email" json:"email"`
	EmergencyContactName     string     `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone    string     `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	EmergencyContactRelation string     `db:"emergency_contact_relation" json:"emergency_contact_relation"`
	BloodType                string     `db:"blood_type" json:"blood_type"`
	Allergies                string     `db:"allergies" json:"allergies"`
	MedicalHistory           string     `db:"medical_history" json:"medical_history"`
	Notes                    string     `db:"notes" json:"notes"`
	Balance                  float64    `db:"balance" json:"balance"`
	IsActive                 bool       `db:"is_active" json:"is_active"`
	CreatedBy                *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
}

// Age in whole years at the given date, or -1 when birth date is
// unknown.
func (p *Patient) Age(at time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	years := at.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}

type CreatePatientRequest struct {
	Name                     string `json:"name" binding:"required"`
	Gender                   string `json:"gender" binding:"required,oneof=male female other"`
	BirthDate                string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	IDCardNumber             string `json:"id_card_number"`
	Phone                    string `json:"phone"`
	Mobile                   string `json:"mobile"`
	Address                  string `json:"address"`
	Email                    string `json:"email" binding:"omitempty,email"`
	EmergencyContactName     string `json:"emergency_contact_name"`
	EmergencyContactPhone    string `json:"emergency_contact_phone"`
	EmergencyContactRelation string `json:"emergency_contact_relation"`
	BloodType                string `json:"blood_type"`
	Allergies                string `json:"allergies"`
	MedicalHistory           string `json:"medical_history"`
	Notes                    string `json:"notes"`
}

type UpdatePatientRequest struct {
	Name                     *string `json:"name"`
	Gender                   *string `json:"gender" binding:"omitempty,oneof=male female other"`
	BirthDate                *string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	IDCardNumber             *string `json:"id_card_number"`
	Phone                    *string `json:"phone"`
	Mobile                   *string `json:"mobile"`
	Address                  *string `json:"address"`
	Email                    *string `json:"email" binding:"omitempty,email"`
	EmergencyContactName     *string `json:"emergency_contact_name"`
	EmergencyContactPhone    *string `json:"emergency_contact_phone"`
	EmergencyContactRelation *string `json:"emergency_contact_relation"`
	BloodType                *string `json:"blood_type"`
	Allergies                *string `json:"allergies"`
	MedicalHistory           *string `json:"medical_history"`
	Notes                    *string `json:"notes"`
	IsActive                 *bool   `json:"is_active"`
}

type PatientFilter struct {
	Pagination
	Query    string `form:"q"`
	IsActive *bool  `form:"is_active"`
}

type ImageType string

const (
	ImageTypeTongue ImageType = "tongue"
	ImageTypeFace   ImageType = "face"
	ImageTypeOther  ImageType = "other"
)

type PatientImage struct {
	Base
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	ImageType   ImageType  `db:"image_type" json:"image_type"`
	FilePath    string     `db:"file_path" json:"file_path"`
	Description string     `db:"description" json:"description"`
	TakenAt     *time.Time `db:"taken_at" json:"taken_at,omitempty"`
	CreatedBy   *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
}

type CreatePatientImageRequest struct {
	ImageType   string `json:"image_type" binding:"required,oneof=tongue face other"`
	FilePath    string `json:"file_path" binding:"required"`
	Description string `json:"description"`
	TakenAt     string `json:"taken_at" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}
