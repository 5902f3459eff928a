package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sequence scopes. Date-scoped numbers restart at 1 each day because
// the scope string embeds the date.
const (
	SeqChart        = "chart"
	SeqRegistration = "registration"
	SeqPrescription = "prescription"
	SeqBill         = "bill"
	SeqCertificate  = "certificate"
	SeqDispensing   = "dispensing"
	SeqPurchase     = "purchase"
	SeqQueue        = "queue"
)

// DateScope builds the per-day sequence scope, e.g.
// "registration:20260825".
func DateScope(kind string, date time.Time) string {
	return kind + ":" + date.Format("20060102")
}

// QueueScope serializes queue numbers per doctor and day.
func QueueScope(doctorID uuid.UUID, date time.Time) string {
	return SeqQueue + ":" + doctorID.String() + ":" + date.Format("20060102")
}

// FormatChartNumber renders the global patient chart number, e.g.
// "000042".
func FormatChartNumber(n int64) string {
	return fmt.Sprintf("%06d", n)
}

// FormatDateNumber renders a date-scoped business number such as
// "RX202608250001". The prefix is empty for registration numbers.
func FormatDateNumber(prefix string, date time.Time, n int64) string {
	return fmt.Sprintf("%s%s%04d", prefix, date.Format("20060102"), n)
}

// NewClientOrderID issues the identifier external pharmacies echo back
// in webhooks.
func NewClientOrderID() string {
	return strings.ToUpper(uuid.New().String())
}
