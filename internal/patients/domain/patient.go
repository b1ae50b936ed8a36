package patients

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no patient matches the given id.
var ErrNotFound = errors.New("patient: not found")

// Condition types select the rule thresholds applied to a patient's
// readings. The default covers an adult at rest.
const (
	ConditionAdultResting = "ADULT_RESTING"
	ConditionPostSurgery  = "POST_SURGERY"
	ConditionCardiac      = "CARDIAC"
)

// Status values for a patient record.
const (
	StatusAdmitted   = "ADMITTED"
	StatusDischarged = "DISCHARGED"
)

// Patient is a monitored person.
type Patient struct {
	ID            string    `json:"id"`
	MRN           string    `json:"mrn"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	DateOfBirth   time.Time `json:"dateOfBirth"`
	Gender        string    `json:"gender,omitempty"`
	ConditionType string    `json:"conditionType"`
	Room          string    `json:"room,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PatientRepository stores patient records.
type PatientRepository interface {
	Save(ctx context.Context, p *Patient) error
	FindByID(ctx context.Context, id string) (*Patient, error)
	FindAll(ctx context.Context) ([]*Patient, error)
}
