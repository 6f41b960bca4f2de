// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package validation

import (
	"strings"
	"testing"
)

type sample struct {
	Nome    string `json:"nome" validate:"notblank,max=10"`
	Papel   string `json:"papel" validate:"omitempty,oneof=admin membro"`
	Usuario *int64 `json:"usuario_id" validate:"required,gt=0"`
}

func int64Ptr(v int64) *int64 { return &v }

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     sample
		wantField string
		wantTag   string
	}{
		{name: "valid", input: sample{Nome: "Equipe", Papel: "admin", Usuario: int64Ptr(3)}},
		{name: "blank name", input: sample{Nome: "   ", Usuario: int64Ptr(3)}, wantField: "nome", wantTag: "notblank"},
		{name: "long name", input: sample{Nome: strings.Repeat("x", 11), Usuario: int64Ptr(3)}, wantField: "nome", wantTag: "max"},
		{name: "bad role", input: sample{Nome: "a", Papel: "root", Usuario: int64Ptr(3)}, wantField: "papel", wantTag: "oneof"},
		{name: "missing user", input: sample{Nome: "a"}, wantField: "usuario_id", wantTag: "required"},
		{name: "zero user", input: sample{Nome: "a", Usuario: int64Ptr(0)}, wantField: "usuario_id", wantTag: "gt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() expected error")
			}
			fe := err.Errors()[0]
			if fe.Field() != tt.wantField || fe.Tag() != tt.wantTag {
				t.Errorf("got field=%q tag=%q, want field=%q tag=%q", fe.Field(), fe.Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	err := ValidateStruct(&sample{Nome: "", Papel: "root"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %#v, want 3 entries", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "nome is required") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("expected a single shared validator")
	}
}
