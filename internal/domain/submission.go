package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type SubmissionType string

const (
	TypeInquiry           SubmissionType = "inquiry"
	TypeNewsletter        SubmissionType = "newsletter"
	TypeFileUpload        SubmissionType = "file-upload"
	TypeServiceInquiry    SubmissionType = "service-inquiry"
	TypeInspectionBooking SubmissionType = "inspection-booking"
)

func (t SubmissionType) Valid() bool {
	switch t {
	case TypeInquiry, TypeNewsletter, TypeFileUpload, TypeServiceInquiry, TypeInspectionBooking:
		return true
	}
	return false
}

type SubmissionStatus string

const (
	SubmissionNew      SubmissionStatus = "new"
	SubmissionRead     SubmissionStatus = "read"
	SubmissionResolved SubmissionStatus = "resolved"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionNew, SubmissionRead, SubmissionResolved:
		return true
	}
	return false
}

// Payload is the type-specific body of a submission.
type Payload interface {
	Kind() SubmissionType
	Validate() error
}

type InquiryData struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
	CarID   string `json:"carId,omitempty"`
}

func (InquiryData) Kind() SubmissionType { return TypeInquiry }

func (d InquiryData) Validate() error {
	return required("name", d.Name, "message", d.Message)
}

type NewsletterData struct {
	SubscribedAt time.Time `json:"subscribedAt"`
}

func (NewsletterData) Kind() SubmissionType { return TypeNewsletter }
func (NewsletterData) Validate() error      { return nil }

type FileUploadData struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	FileType    string `json:"fileType,omitempty"`
	FileURL     string `json:"fileUrl"`
	FilePath    string `json:"filePath"`
	Description string `json:"description,omitempty"`
	ProductID   string `json:"productId,omitempty"`
}

func (FileUploadData) Kind() SubmissionType { return TypeFileUpload }

func (d FileUploadData) Validate() error {
	return required("fileName", d.FileName, "fileUrl", d.FileURL)
}

type ServiceInquiryData struct {
	ServiceType   string `json:"serviceType"`
	ServiceName   string `json:"serviceName,omitempty"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	VehicleInfo   string `json:"vehicleInfo,omitempty"`
	Description   string `json:"description"`
	PreferredDate string `json:"preferredDate,omitempty"`
}

func (ServiceInquiryData) Kind() SubmissionType { return TypeServiceInquiry }

func (d ServiceInquiryData) Validate() error {
	return required("serviceType", d.ServiceType, "name", d.Name, "phone", d.Phone, "description", d.Description)
}

type InspectionBookingData struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	VehicleInfo    string `json:"vehicleInfo,omitempty"`
	InspectionTier string `json:"inspectionTier,omitempty"`
	ServiceType    string `json:"serviceType,omitempty"`
	PreferredDate  string `json:"preferredDate"`
	PreferredTime  string `json:"preferredTime"`
	Notes          string `json:"notes,omitempty"`
}

func (InspectionBookingData) Kind() SubmissionType { return TypeInspectionBooking }

func (d InspectionBookingData) Validate() error {
	return required("name", d.Name, "phone", d.Phone, "preferredDate", d.PreferredDate, "preferredTime", d.PreferredTime)
}

// required takes name/value pairs.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return Invalid(pairs[i], "is required")
		}
	}
	return nil
}

// NewPayload returns an empty payload for t, ready to be decoded into.
func NewPayload(t SubmissionType) (Payload, error) {
	switch t {
	case TypeInquiry:
		return &InquiryData{}, nil
	case TypeNewsletter:
		return &NewsletterData{}, nil
	case TypeFileUpload:
		return &FileUploadData{}, nil
	case TypeServiceInquiry:
		return &ServiceInquiryData{}, nil
	case TypeInspectionBooking:
		return &InspectionBookingData{}, nil
	}
	return nil, Invalid("type", fmt.Sprintf("unknown submission type %q", t))
}

// Submission is a customer-originated record. Only Status changes after creation.
type Submission struct {
	ID        string           `json:"id"`
	Type      SubmissionType   `json:"type"`
	Email     string           `json:"email"`
	Data      Payload          `json:"data"`
	CreatedAt time.Time        `json:"createdAt"`
	Status    SubmissionStatus `json:"status"`
}

type submissionJSON struct {
	ID        string           `json:"id"`
	Type      SubmissionType   `json:"type"`
	Email     string           `json:"email"`
	Data      json.RawMessage  `json:"data"`
	CreatedAt time.Time        `json:"createdAt"`
	Status    SubmissionStatus `json:"status"`
}

func (s *Submission) UnmarshalJSON(b []byte) error {
	var raw submissionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p, err := DecodePayload(raw.Type, raw.Data)
	if err != nil {
		return err
	}
	*s = Submission{
		ID:        raw.ID,
		Type:      raw.Type,
		Email:     raw.Email,
		Data:      p,
		CreatedAt: raw.CreatedAt,
		Status:    raw.Status,
	}
	return nil
}

// DecodePayload decodes raw JSON into the variant selected by t. Payloads are returned
// by value so decoded and freshly built submissions compare equal.
func DecodePayload(t SubmissionType, raw []byte) (Payload, error) {
	p, err := NewPayload(t)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", t, err)
		}
	}
	return byValue(p), nil
}

func byValue(p Payload) Payload {
	switch v := p.(type) {
	case *InquiryData:
		return *v
	case *NewsletterData:
		return *v
	case *FileUploadData:
		return *v
	case *ServiceInquiryData:
		return *v
	case *InspectionBookingData:
		return *v
	}
	return p
}

// SubmissionIndex is the lightweight entry kept next to each submission record.
type SubmissionIndex struct {
	ID        string         `json:"id"`
	Type      SubmissionType `json:"type"`
	CreatedAt time.Time      `json:"createdAt"`
}
