package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

type samplePayload struct {
	Name     string `validate:"required"`
	Password string `validate:"min=5"`
}

func TestProcessValidationErrorsFieldMap(t *testing.T) {
	err := validator.New().Struct(samplePayload{Password: "abc"})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	got := ProcessValidationErrors(err)
	if got["name"] != "name is required" {
		t.Errorf("name: got %q", got["name"])
	}
	if got["password"] != "password must be at least 5" {
		t.Errorf("password: got %q", got["password"])
	}
}

func TestProcessValidationErrorsPlainError(t *testing.T) {
	got := ProcessValidationErrors(errors.New("unexpected EOF"))
	if got["error"] != "unexpected EOF" {
		t.Errorf("got %q", got["error"])
	}
}
