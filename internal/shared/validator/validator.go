// Package validator registers the routing domain's custom validation tags on
// the platform validator. Modules call RegisterDomainRules once at startup.
package validator

import (
	"time"

	"lead_routing_backend/internal/domain"
	platformvalidator "lead_routing_backend/platform/validator"

	"github.com/go-playground/validator/v10"
)

// RegisterDomainRules adds eventtype, availabilitystatus, responseaction and
// isodate tags.
func RegisterDomainRules(v *platformvalidator.Validator) error {
	rules := map[string]validator.Func{
		"eventtype": func(fl validator.FieldLevel) bool {
			return domain.EventType(fl.Field().String()).IsValid()
		},
		"availabilitystatus": func(fl validator.FieldLevel) bool {
			return domain.AvailabilityStatus(fl.Field().String()).IsValid()
		},
		"responseaction": func(fl validator.FieldLevel) bool {
			return domain.ResponseAction(fl.Field().String()).IsValid()
		},
		"isodate": func(fl validator.FieldLevel) bool {
			_, err := time.Parse(domain.DateLayout, fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// NewWithDomainRules returns a platform validator with the domain tags registered.
func NewWithDomainRules() (*platformvalidator.Validator, error) {
	v := platformvalidator.New()
	if err := RegisterDomainRules(v); err != nil {
		return nil, err
	}
	return v, nil
}
