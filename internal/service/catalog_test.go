package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/rumora/website/internal/apperror"
)

func TestCatalog_Embedded(t *testing.T) {
	svc, err := NewCatalogService(discardLogger())
	if err != nil {
		t.Fatalf("NewCatalogService() error = %v", err)
	}

	plans := svc.Plans()
	if len(plans) != 3 {
		t.Fatalf("len(Plans()) = %d, want 3", len(plans))
	}
	for _, p := range plans {
		if p.ID == "" || p.Name == "" || p.Price == "" || len(p.Features) == 0 {
			t.Errorf("incomplete plan: %+v", p)
		}
	}

	if n := len(svc.Offerings()); n != 3 {
		t.Errorf("len(Offerings()) = %d, want 3", n)
	}
}

func TestCatalog_PlansReturnsCopy(t *testing.T) {
	svc, _ := NewCatalogService(discardLogger())

	plans := svc.Plans()
	plans[0].Name = "tampered"

	if svc.Plans()[0].Name == "tampered" {
		t.Error("Plans() exposes internal state")
	}
}

func TestCatalog_FromYAML(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"valid", "plans:\n  - id: solo\n    name: Solo\n    price: \"$1\"\n    features: [one]\n", false},
		{"no plans", "services: []\n", true},
		{"malformed", "plans: [", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalogServiceFromYAML([]byte(tt.doc), discardLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCatalogServiceFromYAML() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignup(t *testing.T) {
	svc, _ := NewCatalogService(discardLogger())

	tests := []struct {
		name      string
		req       SignupRequest
		wantField string
	}{
		{"valid", SignupRequest{Email: "  nova@example.com ", Name: "Nova"}, ""},
		{"valid without name", SignupRequest{Email: "nova@example.com"}, ""},
		{"missing email", SignupRequest{Name: "Nova"}, "email"},
		{"bad email", SignupRequest{Email: "nova-at-example"}, "email"},
		{"long name", SignupRequest{Email: "nova@example.com", Name: strings.Repeat("n", 65)}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Signup(tt.req)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Signup() error = %v", err)
				}
				if !res.Success || res.Redirect != "/testing" {
					t.Errorf("Signup() = %+v", res)
				}
				return
			}

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Signup() error = %v, want validation error", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}
