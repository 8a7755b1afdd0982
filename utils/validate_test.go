package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidZip(t *testing.T) {
	tests := []struct {
		zip   string
		valid bool
	}{
		{"21201", true},
		{"21044", true},
		{"20723", true},
		{"99201", false}, // wrong leading digit, even if it exists somewhere
		{"12201", false},
		{"31201", false},
		{"2120", false},
		{"212011", false},
		{"2120a", false},
		{"", false},
		{" 21201 ", true},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.valid, ValidZip(tt.zip), "zip %q", tt.zip)
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"5551234", true},              // 7 digits
		{"4105551234", true},           // 10 digits
		{"14105551234", true},          // 11 digits with leading 1
		{"24105551234", false},         // 11 digits without leading 1
		{"(410) 555-1234", true},       // formatting stripped
		{"410.555.1234", true},
		{"+1 410 555 1234", true},
		{"555123", false},              // too short
		{"41055512345", false},         // 11 digits, no leading 1
		{"", false},
		{"call me", false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.valid, ValidPhone(tt.phone), "phone %q", tt.phone)
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("jane@example.com"))
	assert.True(t, ValidEmail("jane.doe+tag@mail.example.co"))
	assert.False(t, ValidEmail("jane@"))
	assert.False(t, ValidEmail("example.com"))
	assert.False(t, ValidEmail("jane doe@example.com"))
	assert.False(t, ValidEmail(""))
}

func TestResolveZip(t *testing.T) {
	area, ok := ResolveZip("21201")
	assert.True(t, ok)
	assert.Equal(t, "Baltimore", area.City)
	assert.Equal(t, "Baltimore City", area.County)

	_, ok = ResolveZip("21999")
	assert.False(t, ok)
}
