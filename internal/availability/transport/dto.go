package transport

import "time"

type SetDayRequest struct {
	Status string `json:"status" validate:"required,availabilitystatus"`
}

type ListDaysQuery struct {
	From string `form:"from" validate:"omitempty,isodate"`
	To   string `form:"to" validate:"omitempty,isodate"`
}

type DayResponse struct {
	Date        string     `json:"date"`
	Status      string     `json:"status"`
	Locked      bool       `json:"locked"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}
