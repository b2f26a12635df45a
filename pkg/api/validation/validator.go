// MiniDisplay Core
// Copyright (c) 2026 The MiniDisplay Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of MiniDisplay Core.
//
// MiniDisplay Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniDisplay Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniDisplay Core.  If not, see <http://www.gnu.org/licenses/>.

// Package validation checks API request parameters with
// go-playground/validator plus the display-specific tags.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/minidisplay/minidisplay-core/pkg/devices/led"
	"github.com/minidisplay/minidisplay-core/pkg/framebuffer"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
)

// Common validation errors.
var (
	ErrMissingParams = errors.New("missing params")
	ErrInvalidParams = errors.New("invalid params")
)

// Validator handles validation of API parameters.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator with registered custom validators.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("orientation", validateOrientation)
	_ = v.RegisterValidation("rgbhex", validateHexColor)
	_ = v.RegisterValidation("ledtheme", validateLEDTheme)

	return &Validator{validate: v}
}

// DefaultValidator is a shared validator instance for API use.
var DefaultValidator = NewValidator()

// Validate validates a struct and returns a formatted error if validation fails.
func (v *Validator) Validate(params any) error {
	if err := v.validate.Struct(params); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewError(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidateAndUnmarshal unmarshals JSON params and validates them.
// Returns ErrMissingParams if params is empty, ErrInvalidParams if unmarshal fails,
// or an Error if validation fails.
func ValidateAndUnmarshal[T any](params json.RawMessage, dest *T) error {
	if len(params) == 0 {
		return ErrMissingParams
	}
	if err := json.Unmarshal(params, dest); err != nil {
		return ErrInvalidParams
	}
	return DefaultValidator.Validate(dest)
}

func validateOrientation(fl validator.FieldLevel) bool {
	_, err := orientation.Parse(fl.Field().String())
	return err == nil
}

func validateHexColor(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	_, err := framebuffer.ParseHexColor(val)
	return err == nil
}

func validateLEDTheme(fl validator.FieldLevel) bool {
	v := fl.Field().Uint()
	return v <= 0xFF && led.Theme(v).Valid()
}
