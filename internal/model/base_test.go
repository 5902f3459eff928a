package model

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPagination_Normalize(t *testing.T) {
	tests := []struct {
		name         string
		in           Pagination
		wantPage     int
		wantPageSize int
	}{
		{"zero values", Pagination{}, 1, 20},
		{"negative page", Pagination{Page: -3, PageSize: 10}, 1, 10},
		{"page size too large", Pagination{Page: 2, PageSize: 500}, 2, 20},
		{"valid passes through", Pagination{Page: 3, PageSize: 50}, 3, 50},
		{"max page size kept", Pagination{Page: 1, PageSize: 100}, 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			assert.Equal(t, tt.wantPage, tt.in.Page)
			assert.Equal(t, tt.wantPageSize, tt.in.PageSize)
		})
	}
}

func TestPagination_Offset(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 20}
	assert.Equal(t, 40, p.Offset())
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "chan", (&User{Username: "chan"}).FullName())
	assert.Equal(t, "陳大文", (&User{Username: "chan", LastName: "陳", FirstName: "大文"}).FullName())
	assert.Equal(t, "陳", (&User{Username: "chan", LastName: "陳"}).FullName())
	assert.Equal(t, "大文", (&User{Username: "chan", FirstName: "大文"}).FullName())
}

func TestPatient_Age(t *testing.T) {
	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	born := time.Date(1990, 8, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 36, (&Patient{BirthDate: &born}).Age(at))

	notYet := time.Date(1990, 8, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 35, (&Patient{BirthDate: &notYet}).Age(at))

	assert.Equal(t, -1, (&Patient{}).Age(at))
}

func TestNumberFormats(t *testing.T) {
	date := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "000042", FormatChartNumber(42))
	assert.Equal(t, "202608250007", FormatDateNumber("", date, 7))
	assert.Equal(t, "RX202608250001", FormatDateNumber("RX", date, 1))
	assert.Equal(t, "registration:20260825", DateScope(SeqRegistration, date))

	doctorID := uuid.MustParse("0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0")
	assert.Equal(t, "queue:0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0:20260825", QueueScope(doctorID, date))
}

func TestNewClientOrderID(t *testing.T) {
	id := NewClientOrderID()
	assert.Len(t, id, 36)
	assert.Equal(t, strings.ToUpper(id), id)
	assert.NotEqual(t, id, NewClientOrderID())
}
