package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskwiz/taskwiz/internal/cli/apierr"
)

func TestCredentials(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		wantField string
		wantMsg   string
	}{
		{name: "valid", email: "ada@example.com", password: "secret1"},
		{name: "minimum password", email: "a@b.co", password: "123456"},
		{name: "empty email", email: "", password: "secret1", wantField: "email", wantMsg: "Email is required"},
		{name: "no at sign", email: "ada.example.com", password: "secret1", wantField: "email", wantMsg: "Please enter a valid email address"},
		{name: "no domain dot", email: "ada@example", password: "secret1", wantField: "email", wantMsg: "Please enter a valid email address"},
		{name: "whitespace in email", email: "ada lovelace@example.com", password: "secret1", wantField: "email", wantMsg: "Please enter a valid email address"},
		{name: "empty password", email: "ada@example.com", password: "", wantField: "password", wantMsg: "Password is required"},
		{name: "short password", email: "ada@example.com", password: "12345", wantField: "password", wantMsg: "Password must be at least 6 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Credentials(tt.email, tt.password)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var valErr *apierr.ValidationError
			require.True(t, errors.As(err, &valErr), "expected ValidationError, got %T", err)
			assert.Equal(t, tt.wantField, valErr.Field)
			assert.Equal(t, tt.wantMsg, valErr.Message)
		})
	}
}

func TestTaskTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantMsg string
	}{
		{name: "simple", title: "Buy milk"},
		{name: "exactly max", title: strings.Repeat("a", MaxTitleLength)},
		{name: "max counted in characters", title: strings.Repeat("é", MaxTitleLength)},
		{name: "empty", title: "", wantMsg: "Title is required"},
		{name: "blank", title: "   \t", wantMsg: "Title is required"},
		{name: "too long", title: strings.Repeat("a", MaxTitleLength+1), wantMsg: "Title cannot exceed 255 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TaskTitle(tt.title)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apierr.IsValidation(err))
			assert.Equal(t, tt.wantMsg, apierr.Message(err))
		})
	}
}

func TestPage(t *testing.T) {
	assert.NoError(t, Page(1))
	assert.NoError(t, Page(42))

	err := Page(0)
	require.Error(t, err)
	assert.Equal(t, "Page must be 1 or greater", apierr.Message(err))
	assert.Error(t, Page(-3))
}
