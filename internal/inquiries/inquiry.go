// Package inquiries manages directory inquiries, the origin of most leads,
// and the client records created when an inquiry-originated lead closes Won.
package inquiries

import (
	"time"

	"github.com/google/uuid"
)

// InquiryStatus is the lifecycle state of a directory inquiry.
type InquiryStatus string

const (
	InquiryNew       InquiryStatus = "New"
	InquiryInPipe    InquiryStatus = "InPipeline"
	InquiryConverted InquiryStatus = "Converted"
)

// Inquiry is a prospect's directory contact request. Once a lead is opened
// from it the inquiry tracks that lead; when the lead closes Won the inquiry
// flips to Converted and a client record is written.
type Inquiry struct {
	ID       uuid.UUID     `json:"id"`
	TenantID uuid.UUID     `json:"tenantId"`
	Name     string        `json:"name"`
	Email    string        `json:"email,omitempty"`
	Phone    string        `json:"phone,omitempty"`
	Message  string        `json:"message,omitempty"`
	Source   string        `json:"source,omitempty"`
	Status   InquiryStatus `json:"status"`
	LeadID   *uuid.UUID    `json:"leadId,omitempty"`
	ClientID *uuid.UUID    `json:"clientId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Client is the customer record written on conversion. It is the anchor the
// health scoring engine keys on.
type Client struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenantId"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	InquiryID *uuid.UUID `json:"inquiryId,omitempty"`
	LeadID    *uuid.UUID `json:"leadId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
