package model

import "time"

type Bid struct {
	ID         uint    `gorm:"primaryKey"`
	RequestID  uint    `gorm:"not null;index"`
	ProviderID uint    `gorm:"not null;index"`
	Price      float64 `gorm:"not null"`
	Accepted   bool    `gorm:"not null;default:false"`
	CreatedAt  time.Time

	Request  Request  `gorm:"foreignKey:RequestID"`
	Provider Provider `gorm:"foreignKey:ProviderID"`
}

type BidList []Bid
