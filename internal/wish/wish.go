package wish

import (
	"errors"
	"fmt"
	"time"
)

// IDSeparator joins the invitation ID and the guest name key in a record ID.
// Invitation slugs never contain it.
const IDSeparator = ":"

// Attendance is a guest's RSVP answer.
type Attendance string

const (
	// AttendanceUnspecified is used by templates without an RSVP toggle.
	AttendanceUnspecified Attendance = ""
	// AttendanceYes means the guest will attend.
	AttendanceYes Attendance = "hadir"
	// AttendanceNo means the guest will not attend.
	AttendanceNo Attendance = "tidak"
)

// Valid reports whether a is one of the known answers.
func (a Attendance) Valid() bool {
	switch a {
	case AttendanceUnspecified, AttendanceYes, AttendanceNo:
		return true
	}
	return false
}

// ParseAttendance converts user input into an Attendance.
func ParseAttendance(s string) (Attendance, error) {
	a := Attendance(s)
	if !a.Valid() {
		return "", fmt.Errorf("invalid attendance %q (want %q, %q or empty)", s, AttendanceYes, AttendanceNo)
	}
	return a, nil
}

// Wish is one guest's attendance response and/or message for one invitation.
//
// Wishes are immutable once stored: CreatedAt is assigned by the repository
// at write time and nothing in this package updates or deletes a record.
type Wish struct {
	ID           string     `json:"id"`
	InvitationID string     `json:"invitationId"`
	Name         string     `json:"name"`
	NameKey      string     `json:"nameKey,omitempty"`
	Attendance   Attendance `json:"attendance,omitempty"`
	Message      string     `json:"message"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// RecordID returns the deterministic ID of a personal-link wish.
func RecordID(invitationID, nameKey string) string {
	return invitationID + IDSeparator + nameKey
}

// Repository errors. Implementations return them unwrapped or wrapped; callers
// match with errors.Is.
var (
	// ErrNotFound is returned by Get when no record has the requested ID.
	ErrNotFound = errors.New("wish not found")

	// ErrAlreadyExists is returned by CreateIfAbsent when a record with the
	// same ID is already stored. The stored record is left untouched.
	ErrAlreadyExists = errors.New("wish already exists")
)
