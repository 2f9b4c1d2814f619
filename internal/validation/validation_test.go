package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Role     string `validate:"required,role"`
	Country  string `validate:"omitempty,country"`
	Timezone string `validate:"omitempty,timezone"`
}

func TestRegister(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	tests := []struct {
		name    string
		in      profile
		invalid string
	}{
		{"all valid", profile{Role: "tester", Country: "FR", Timezone: "Europe/Paris"}, ""},
		{"optional fields empty", profile{Role: "client"}, ""},
		{"unknown role", profile{Role: "owner"}, "role"},
		{"unknown country", profile{Role: "admin", Country: "QQ"}, "country"},
		{"unknown timezone", profile{Role: "admin", Timezone: "Europe/Atlantis"}, "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.invalid == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.invalid, verrs[0].Tag())
		})
	}
}

func TestRegisterGin(t *testing.T) {
	assert.NoError(t, RegisterGin())
}
