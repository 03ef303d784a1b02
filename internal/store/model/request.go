package model

import "time"

type RequestStatus string

func (s RequestStatus) String() string {
	return string(s)
}

const (
	StatusOpen      RequestStatus = "OPEN"
	StatusBidding   RequestStatus = "BIDDING"
	StatusScheduled RequestStatus = "SCHEDULED"
	StatusDone      RequestStatus = "DONE"
)

// BiddableStatuses lists the statuses in which a request accepts new bids.
var BiddableStatuses = []RequestStatus{StatusOpen, StatusBidding}

// Biddable reports whether a request in this status may still receive bids.
func (s RequestStatus) Biddable() bool {
	return s == StatusOpen || s == StatusBidding
}

type Request struct {
	ID           uint          `gorm:"primaryKey"`
	ClientID     uint          `gorm:"not null;index"`
	Cores        int           `gorm:"not null"`
	ClockSpeed   float64       `gorm:"not null"`
	Memory       int           `gorm:"not null"`
	CodeText     string        `gorm:"type:text;not null"`
	Status       RequestStatus `gorm:"type:varchar(20);not null;default:OPEN;index"`
	ResultOutput *string       `gorm:"type:text"`
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Client Client `gorm:"foreignKey:ClientID"`
}

type RequestList []Request
