package domain

import "time"

// AuditLog is one recorded authentication action.
type AuditLog struct {
	ID string
	// Subject identifies who acted: a masked mobile number, or SystemSubject.
	Subject   string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
