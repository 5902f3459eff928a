package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

type Appointment struct {
	Base
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	RoomID          *uuid.UUID        `db:"room_id" json:"room_id,omitempty"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string            `db:"appointment_time" json:"appointment_time"`
	Status          AppointmentStatus `db:"status" json:"status"`
	Notes           string            `db:"notes" json:"notes"`
	CreatedBy       *uuid.UUID        `db:"created_by" json:"created_by,omitempty"`

	PatientName string `db:"patient_name" json:"patient_name,omitempty"`
	DoctorName  string `db:"doctor_name" json:"doctor_name,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientID       string `json:"patient_id" binding:"required,uuid"`
	DoctorID        string `json:"doctor_id" binding:"required,uuid"`
	RoomID          string `json:"room_id" binding:"omitempty,uuid"`
	AppointmentDate string `json:"appointment_date" binding:"required,datetime=2006-01-02"`
	AppointmentTime string `json:"appointment_time" binding:"required"`
	Notes           string `json:"notes"`
}

type UpdateAppointmentRequest struct {
	DoctorID        *string `json:"doctor_id" binding:"omitempty,uuid"`
	RoomID          *string `json:"room_id" binding:"omitempty,uuid"`
	AppointmentDate *string `json:"appointment_date" binding:"omitempty,datetime=2006-01-02"`
	AppointmentTime *string `json:"appointment_time"`
	Notes           *string `json:"notes"`
}

type AppointmentFilter struct {
	Pagination
	Date      string `form:"date"`
	DoctorID  string `form:"doctor_id"`
	PatientID string `form:"patient_id"`
	Status    string `form:"status"`
}

type ConvertAppointmentRequest struct {
	RegistrationFee float64 `json:"registration_fee" binding:"omitempty,min=0"`
}

type VisitType string

const (
	VisitTypeFirst    VisitType = "first_visit"
	VisitTypeFollowUp VisitType = "follow_up"
)

type RegistrationStatus string

const (
	RegistrationStatusWaiting        RegistrationStatus = "waiting"
	RegistrationStatusInConsultation RegistrationStatus = "in_consultation"
	RegistrationStatusCompleted      RegistrationStatus = "completed"
	RegistrationStatusCancelled      RegistrationStatus = "cancelled"
	RegistrationStatusNoShow         RegistrationStatus = "no_show"
)

type Registration struct {
	Base
	PatientID          uuid.UUID          `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID          `db:"doctor_id" json:"doctor_id"`
	RoomID             *uuid.UUID         `db:"room_id" json:"room_id,omitempty"`
	AppointmentID      *uuid.UUID         `db:"appointment_id" json:"appointment_id,omitempty"`
	RegistrationNumber string             `db:"registration_number" json:"registration_number"`
	QueueNumber        int                `db:"queue_number" json:"queue_number"`
	VisitType          VisitType          `db:"visit_type" json:"visit_type"`
	Status             RegistrationStatus `db:"status" json:"status"`
	RegistrationDate   time.Time          `db:"registration_date" json:"registration_date"`
	RegistrationTime   string             `db:"registration_time" json:"registration_time"`
	CheckInAt          *time.Time         `db:"check_in_at" json:"check_in_at,omitempty"`
	ConsultationStart  *time.Time         `db:"consultation_start" json:"consultation_start,omitempty"`
	ConsultationEnd    *time.Time         `db:"consultation_end" json:"consultation_end,omitempty"`
	RegistrationFee    float64            `db:"registration_fee" json:"registration_fee"`
	Notes              string             `db:"notes" json:"notes"`
	CreatedBy          *uuid.UUID         `db:"created_by" json:"created_by,omitempty"`

	PatientName string `db:"patient_name" json:"patient_name,omitempty"`
	ChartNumber string `db:"chart_number" json:"chart_number,omitempty"`
	DoctorName  string `db:"doctor_name" json:"doctor_name,omitempty"`
	RoomName    string `db:"room_name" json:"room_name,omitempty"`
}

type CreateRegistrationRequest struct {
	PatientID       string  `json:"patient_id" binding:"required,uuid"`
	DoctorID        string  `json:"doctor_id" binding:"required,uuid"`
	RoomID          string  `json:"room_id" binding:"omitempty,uuid"`
	RegistrationFee float64 `json:"registration_fee" binding:"omitempty,min=0"`
	Notes           string  `json:"notes"`
}

type UpdateRegistrationRequest struct {
	DoctorID *string `json:"doctor_id" binding:"omitempty,uuid"`
	RoomID   *string `json:"room_id" binding:"omitempty,uuid"`
	Notes    *string `json:"notes"`
}

type RegistrationFilter struct {
	Pagination
	Date      string `form:"date"`
	DoctorID  string `form:"doctor_id"`
	RoomID    string `form:"room_id"`
	PatientID string `form:"patient_id"`
	Status    string `form:"status"`
}

// QueueSnapshot is today's queue grouped by stage.
type QueueSnapshot struct {
	Date           string          `json:"date"`
	Waiting        []*Registration `json:"waiting"`
	InConsultation []*Registration `json:"in_consultation"`
	Completed      []*Registration `json:"completed"`
	Summary        QueueSummary    `json:"summary"`
}

type QueueSummary struct {
	Waiting        int `json:"waiting"`
	InConsultation int `json:"in_consultation"`
	Completed      int `json:"completed"`
	Total          int `json:"total"`
}
