// Package models defines the persistent entities of the company directory.
// The structs carry GORM tags directly; the repository migrates and queries
// them without a separate persistence model layer.
package models

import (
	"time"
)

// Company is a waste-management company listing. It belongs to the user that
// created it and to exactly one region, and carries a many-to-many set of
// offered services.
type Company struct {
	// ID is the auto-assigned identifier.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the company's display name.
	Name string `gorm:"size:150;not null" json:"name"`
	// Description provides details about the company.
	Description string `gorm:"size:3000" json:"description"`
	// Address is the postal address.
	Address string `json:"address"`
	// Phone is the contact phone number.
	Phone string `json:"phone"`
	// Email is the contact email address.
	Email string `json:"email"`
	// Website is the company's public URL.
	Website string `json:"website"`
	// FoundedYear is the year the company was founded.
	FoundedYear int `json:"founded_year"`
	// LogoURL points at the company logo image.
	LogoURL string `json:"logo_url"`
	// UserID is the owning user. Set once at creation, never reassigned.
	UserID uint `gorm:"index;not null" json:"user_id"`
	// RegionID is the region the company operates in.
	RegionID uint `gorm:"index;not null" json:"region_id"`
	// Region is the preloaded region row.
	Region *Region `json:"region,omitempty"`
	// Services is the set of services the company offers.
	Services []Service `gorm:"many2many:company_services" json:"services"`
	// CreatedAt records when the listing was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt records the last modification time.
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates: a nil field was absent
// from the request and keeps its stored value. The owner is deliberately
// not part of the update surface.
type CompanyUpdate struct {
	// ID is the identifier of the company to update.
	ID uint
	// Name is the new name.
	Name *string
	// Description is the new description.
	Description *string
	// Address is the new postal address.
	Address *string
	// Phone is the new phone number.
	Phone *string
	// Email is the new contact email.
	Email *string
	// Website is the new public URL.
	Website *string
	// FoundedYear is the new founding year.
	FoundedYear *int
	// LogoURL is the new logo location.
	LogoURL *string
	// RegionID reassigns the company's region.
	RegionID *uint
	// ServiceIDs, when present, replaces the service set wholesale.
	ServiceIDs *[]uint
}

// Changes returns the scalar column assignments present in the update.
// ServiceIDs is deliberately excluded; the association is rewritten
// separately inside the same transaction.
func (u *CompanyUpdate) Changes() map[string]interface{} {
	changes := make(map[string]interface{})
	if u.Name != nil {
		changes["name"] = *u.Name
	}
	if u.Description != nil {
		changes["description"] = *u.Description
	}
	if u.Address != nil {
		changes["address"] = *u.Address
	}
	if u.Phone != nil {
		changes["phone"] = *u.Phone
	}
	if u.Email != nil {
		changes["email"] = *u.Email
	}
	if u.Website != nil {
		changes["website"] = *u.Website
	}
	if u.FoundedYear != nil {
		changes["founded_year"] = *u.FoundedYear
	}
	if u.LogoURL != nil {
		changes["logo_url"] = *u.LogoURL
	}
	if u.RegionID != nil {
		changes["region_id"] = *u.RegionID
	}
	return changes
}

// CompanyFilter restricts a company listing. Both criteria are optional and
// combine as an intersection.
type CompanyFilter struct {
	RegionID  *uint
	ServiceID *uint
}

// Pagination defaults applied when a request omits or zeroes the parameters.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// CompanyPage is one page of a filtered company listing together with the
// pre-pagination totals.
type CompanyPage struct {
	Companies []Company `json:"companies"`
	Total     int64     `json:"total"`
	Pages     int       `json:"pages"`
	Page      int       `json:"page"`
	PerPage   int       `json:"per_page"`
}
