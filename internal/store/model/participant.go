package model

import "time"

type Client struct {
	ID        uint `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

// Provider capability fields stay nil until the provider publishes its specs.
type Provider struct {
	ID         uint `gorm:"primaryKey;autoIncrement:false"`
	Cores      *int
	ClockSpeed *float64
	Memory     *int
	Available  bool `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasSpecs reports whether all capability fields have been published.
func (p Provider) HasSpecs() bool {
	return p.Cores != nil && p.ClockSpeed != nil && p.Memory != nil
}
