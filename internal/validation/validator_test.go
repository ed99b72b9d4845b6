// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/attentive/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct_ReportRequest(t *testing.T) {
	t.Parallel()
	valid := models.ReportRequest{ReportTitle: "week 10", UserID: "u1", StartDate: "2026-03-01", EndDate: "2026-03-07"}

	tests := []struct {
		name      string
		mutate    func(*models.ReportRequest)
		wantField string
		wantTag   string
	}{
		{"valid", func(*models.ReportRequest) {}, "", ""},
		{"same day", func(r *models.ReportRequest) { r.EndDate = r.StartDate }, "", ""},
		{"missing user", func(r *models.ReportRequest) { r.UserID = "" }, "userId", "required"},
		{"bad start", func(r *models.ReportRequest) { r.StartDate = "2026/03/01" }, "startDate", "datetime"},
		{"missing end", func(r *models.ReportRequest) { r.EndDate = "" }, "endDate", "required"},
		{"inverted", func(r *models.ReportRequest) { r.EndDate = "2026-02-01" }, "endDate", "gtefield"},
		{"long title", func(r *models.ReportRequest) { r.ReportTitle = strings.Repeat("x", 201) }, "reportTitle", "max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := valid
			tt.mutate(&req)
			verr := ValidateStruct(&req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			got := verr.Errors()[0]
			if got.Field() != tt.wantField || got.Tag() != tt.wantTag {
				t.Errorf("error = %s/%s, want %s/%s (%v)", got.Field(), got.Tag(), tt.wantField, tt.wantTag, verr)
			}
		})
	}
}

type relaySettings struct {
	Channel string `koanf:"channel" validate:"required,channel"`
	Port    int    `koanf:"port" validate:"min=1,max=65535"`
}

func TestValidateStruct_ChannelAndKoanfNames(t *testing.T) {
	t.Parallel()
	if verr := ValidateStruct(&relaySettings{Channel: "attention-meaningful-events", Port: 4222}); verr != nil {
		t.Fatalf("valid settings rejected: %v", verr)
	}

	verr := ValidateStruct(&relaySettings{Channel: "bad channel>", Port: 0})
	if verr == nil || len(verr.Errors()) != 2 {
		t.Fatalf("ValidateStruct() = %v, want 2 errors", verr)
	}
	if verr.Errors()[0].Field() != "channel" {
		t.Errorf("field = %s, want koanf name", verr.Errors()[0].Field())
	}
	if !strings.Contains(verr.Error(), "port must be at least 1") {
		t.Errorf("message = %q", verr.Error())
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()
	single := ValidateStruct(&models.ReportRequest{UserID: "u1", StartDate: "2026-03-01"})
	api := single.ToAPIError()
	if api.Code != "VALIDATION_FAILED" || api.Message != "endDate is required" {
		t.Errorf("single ToAPIError() = %+v", api)
	}
	if api.Details["field"] != "endDate" {
		t.Errorf("details = %v", api.Details)
	}

	multi := ValidateStruct(&models.ReportRequest{}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]any)
	if !ok || len(fields) != 3 {
		t.Errorf("multi details = %v", multi.Details)
	}

	empty := (&RequestValidationError{}).ToAPIError()
	if empty.Message != "Validation failed" {
		t.Errorf("empty ToAPIError() = %+v", empty)
	}
}
