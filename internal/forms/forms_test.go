package forms

import (
	"strings"
	"testing"
)

func TestValidateLoginForm(t *testing.T) {
	tests := []struct {
		name    string
		form    LoginForm
		wantErr string
	}{
		{
			name: "valid",
			form: LoginForm{Email: "user@example.com", Password: "hunter2hunter2"},
		},
		{
			name:    "missing_email",
			form:    LoginForm{Password: "hunter2hunter2"},
			wantErr: "email is required",
		},
		{
			name:    "bad_email",
			form:    LoginForm{Email: "not-an-email", Password: "hunter2hunter2"},
			wantErr: "invalid email format",
		},
		{
			name:    "short_password",
			form:    LoginForm{Email: "user@example.com", Password: "short"},
			wantErr: "password is too short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.form)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRegisterForm(t *testing.T) {
	valid := RegisterForm{Email: "user@example.com", Username: "aria9", Password: "hunter2hunter2"}
	if err := Validate(valid); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	bad := valid
	bad.Username = "a"
	if err := Validate(bad); err == nil || !strings.Contains(err.Error(), "username") {
		t.Fatalf("Validate() error = %v, want username error", err)
	}

	bad = valid
	bad.Username = "has spaces"
	if err := Validate(bad); err == nil {
		t.Fatal("Validate() error = nil for non-alphanumeric username")
	}
}

func TestValidateCharacterForm(t *testing.T) {
	valid := CharacterForm{
		Name:        "Aria",
		Description: "A cheerful adventurer.",
		Tags:        []string{"fantasy", "friendly"},
	}
	if err := Validate(valid); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	bad := valid
	bad.Name = "A"
	if err := Validate(bad); err == nil || !strings.Contains(err.Error(), "name") {
		t.Fatalf("Validate() error = %v, want name error", err)
	}

	bad = valid
	bad.Tags = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	if err := Validate(bad); err == nil {
		t.Fatal("Validate() error = nil for too many tags")
	}
}
