package controller

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

func TestStartText(t *testing.T) {
	tests := []struct {
		name     string
		from     *models.User
		contains string
	}{
		{"with first name", &models.User{ID: 7, FirstName: "Lena"}, "Hi, Lena!"},
		{"without sender", nil, "Hi, there!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := StartText(123456789, tt.from)
			assert.Contains(t, text, tt.contains)
			assert.Contains(t, text, "123456789")
		})
	}
}
