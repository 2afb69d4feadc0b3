package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	EventType string `validate:"required,eventtype"`
	Date      string `validate:"required,isodate"`
	Action    string `validate:"omitempty,responseaction"`
}

func TestDomainRules(t *testing.T) {
	v, err := NewWithDomainRules()
	require.NoError(t, err)

	assert.NoError(t, v.Struct(sample{EventType: "school_dance", Date: "2026-06-01", Action: "ignored"}))
	assert.Error(t, v.Struct(sample{EventType: "rave", Date: "2026-06-01"}))
	assert.Error(t, v.Struct(sample{EventType: "wedding", Date: "06/01/2026"}))
	assert.Error(t, v.Struct(sample{EventType: "wedding", Date: "2026-06-01", Action: "maybe"}))
}
