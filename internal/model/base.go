package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains the common identity and timestamp columns.
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Pagination represents common pagination parameters.
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// JSONMap represents a generic JSON object.
type JSONMap map[string]interface{}

// DateOnly is the wire format for calendar dates.
const DateOnly = "2006-01-02"

// TimeOnly is the wire format for clock times.
const TimeOnly = "15:04"
