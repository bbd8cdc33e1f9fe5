package domain

import "time"

type ListingStatus string

const (
	StatusAvailable    ListingStatus = "available"
	StatusSold         ListingStatus = "sold"
	StatusNotAvailable ListingStatus = "not-available"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusSold, StatusNotAvailable:
		return true
	}
	return false
}

// Listing is a vehicle offered for sale. Condition, Fuel and Transmission are open
// strings ("excellent", "good", "fair", "needs-work", ...).
type Listing struct {
	ID                  string               `json:"id"`
	Title               string               `json:"title"`
	Brand               string               `json:"brand"`
	Description         string               `json:"description"`
	Year                int                  `json:"year"`
	Price               int64                `json:"price"`
	Mileage             int64                `json:"mileage"`
	Condition           string               `json:"condition"`
	Fuel                string               `json:"fuel,omitempty"`
	Transmission        string               `json:"transmission,omitempty"`
	Images              []string             `json:"images"`
	Video               string               `json:"video,omitempty"`
	InspectionChecklist *InspectionChecklist `json:"inspectionChecklist,omitempty"`
	Status              ListingStatus        `json:"status"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// InspectionChecklist is descriptive only; nothing validates against it.
type InspectionChecklist struct {
	Mechanical struct {
		EngineNoise        bool `json:"engineNoise"`
		OilLeaks           bool `json:"oilLeaks"`
		CoolingSystem      bool `json:"coolingSystem"`
		GearboxResponse    bool `json:"gearboxResponse"`
		SuspensionSteering bool `json:"suspensionSteering"`
		BrakeCondition     bool `json:"brakeCondition"`
	} `json:"mechanical"`
	Electrical struct {
		ECUScan           bool `json:"ecuScan"`
		Sensors           bool `json:"sensors"`
		DashboardWarnings bool `json:"dashboardWarnings"`
		ACSystem          bool `json:"acSystem"`
	} `json:"electrical"`
	Structural struct {
		ChassisAlignment bool `json:"chassisAlignment"`
		AccidentSigns    bool `json:"accidentSigns"`
		RustInspection   bool `json:"rustInspection"`
	} `json:"structural"`
	Documents struct {
		VINVerification  bool `json:"vinVerification"`
		CustomsPapers    bool `json:"customsPapers"`
		OwnershipHistory bool `json:"ownershipHistory"`
	} `json:"documents"`
	Notes string `json:"notes,omitempty"`
}

// ListingPatch carries the fields of a create or a partial update. Nil means "not supplied".
type ListingPatch struct {
	Title               *string
	Brand               *string
	Description         *string
	Year                *int
	Price               *int64
	Mileage             *int64
	Condition           *string
	Fuel                *string
	Transmission        *string
	Images              *[]string
	Video               *string
	InspectionChecklist *InspectionChecklist
	Status              *ListingStatus
}

// Apply merges p onto l. Nested values are replaced wholesale.
func (p ListingPatch) Apply(l *Listing) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Brand != nil {
		l.Brand = *p.Brand
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Year != nil {
		l.Year = *p.Year
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Mileage != nil {
		l.Mileage = *p.Mileage
	}
	if p.Condition != nil {
		l.Condition = *p.Condition
	}
	if p.Fuel != nil {
		l.Fuel = *p.Fuel
	}
	if p.Transmission != nil {
		l.Transmission = *p.Transmission
	}
	if p.Images != nil {
		l.Images = append([]string{}, (*p.Images)...)
	}
	if p.Video != nil {
		l.Video = *p.Video
	}
	if p.InspectionChecklist != nil {
		ic := *p.InspectionChecklist
		l.InspectionChecklist = &ic
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
}

// StorageFile is what the blob backend reports for one object.
type StorageFile struct {
	URL        string    `json:"url"`
	Pathname   string    `json:"pathname"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}
