package models

import "time"

// Region is a geographic area companies operate in. Names are globally
// unique; regions are shared reference data created by any authenticated
// user and never updated or deleted.
type Region struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Service is a kind of waste-management work (e.g. recycling, hazardous
// disposal). Names are globally unique. Like regions, services are shared
// reference data without update or delete operations.
type Service struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:3000" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is a registered account. The password hash never leaves the server.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
