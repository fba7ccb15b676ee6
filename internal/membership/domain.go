package membership

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gymnexus/internal/apperror"
)

// MembershipType is the paid tier of a membership.
type MembershipType string

const (
	TypeBasic   MembershipType = "BASIC"
	TypePremium MembershipType = "PREMIUM"
)

// Valid reports whether t is a known membership type.
func (t MembershipType) Valid() bool {
	return t == TypeBasic || t == TypePremium
}

// ParseMembershipType accepts BASIC or PREMIUM in any case.
func ParseMembershipType(s string) (MembershipType, error) {
	t := MembershipType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown membership type %q: %w", s, apperror.ErrInvalid)
	}
	return t, nil
}

// MembershipStatus is either ACTIVE or INACTIVE.
type MembershipStatus string

const (
	StatusActive   MembershipStatus = "ACTIVE"
	StatusInactive MembershipStatus = "INACTIVE"
)

// Membership is the paid-status value embedded in a Member. A member owns at
// most one; its lifetime is bounded by the member's.
type Membership struct {
	ID        int64            `json:"id"`
	MemberID  int64            `json:"memberId"`
	Type      MembershipType   `json:"membershipType"`
	Status    MembershipStatus `json:"status"`
	StartDate time.Time        `json:"startDate"`
	EndDate   time.Time        `json:"endDate"`
}

// Member is the identity aggregate root owned by the registry.
type Member struct {
	ID          int64       `json:"id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	Phone       string      `json:"phoneNumber"`
	DateOfBirth *Date       `json:"dateOfBirth,omitempty"`
	Membership  *Membership `json:"membership"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// MemberInput carries the member fields a caller may set.
type MemberInput struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phoneNumber"`
	DateOfBirth *Date  `json:"dateOfBirth,omitempty"`
}

func (in MemberInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.FirstName) == "" {
		missing = append(missing, "firstName")
	}
	if strings.TrimSpace(in.LastName) == "" {
		missing = append(missing, "lastName")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing member fields %s: %w", strings.Join(missing, ", "), apperror.ErrInvalid)
	}
	return nil
}

func (in MemberInput) applyTo(m *Member) {
	m.FirstName = strings.TrimSpace(in.FirstName)
	m.LastName = strings.TrimSpace(in.LastName)
	m.Email = strings.TrimSpace(in.Email)
	m.Phone = strings.TrimSpace(in.Phone)
	m.DateOfBirth = in.DateOfBirth
}

// Date is a calendar date encoded as YYYY-MM-DD. Full RFC 3339 timestamps are
// accepted on input and truncated to the day.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate returns the calendar date of t in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("invalid date %q: %w", s, apperror.ErrInvalid)
		}
	}
	*d = NewDate(t)
	return nil
}

// Event types recorded in the member aggregate's history.
const (
	EventMemberRegistered      = "MemberRegistered"
	EventMemberUpdated         = "MemberUpdated"
	EventMemberDeleted         = "MemberDeleted"
	EventMembershipCreated     = "MembershipCreated"
	EventMembershipRenewed     = "MembershipRenewed"
	EventMembershipUpgraded    = "MembershipUpgraded"
	EventMembershipDeactivated = "MembershipDeactivated"
)

// MemberChangedEvent is recorded when a member is registered, updated or deleted.
type MemberChangedEvent struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// MembershipChangedEvent is recorded for every lifecycle transition.
type MembershipChangedEvent struct {
	MembershipID int64            `json:"membershipId"`
	MemberID     int64            `json:"memberId"`
	Type         MembershipType   `json:"membershipType"`
	Status       MembershipStatus `json:"status"`
	StartDate    time.Time        `json:"startDate"`
	EndDate      time.Time        `json:"endDate"`
}

func membershipChanged(ms *Membership) MembershipChangedEvent {
	return MembershipChangedEvent{
		MembershipID: ms.ID,
		MemberID:     ms.MemberID,
		Type:         ms.Type,
		Status:       ms.Status,
		StartDate:    ms.StartDate,
		EndDate:      ms.EndDate,
	}
}

func memberChanged(m *Member) MemberChangedEvent {
	return MemberChangedEvent{
		ID:        m.ID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
	}
}
