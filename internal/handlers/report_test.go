package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/sheshield/apiserver/types"
)

func TestCreateAndGetReport(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "A", "a@x.com", "secret1")

	status, body := env.request(t, http.MethodPost, "/api/reports", token, map[string]string{
		"description": "Followed on the way home",
		"location":    "5th and Main",
		"date":        "2026-08-30",
	})
	if status != http.StatusCreated {
		t.Fatalf("create report status = %d, body %v", status, body)
	}

	var reportStatus string
	if err := json.Unmarshal(body["status"], &reportStatus); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if reportStatus != types.ReportStatusPending {
		t.Fatalf("new report status = %q, want Pending", reportStatus)
	}

	status, body = env.request(t, http.MethodGet, "/api/reports/1", token, nil)
	if status != http.StatusOK {
		t.Fatalf("get report status = %d", status)
	}
	var description string
	if err := json.Unmarshal(body["description"], &description); err != nil {
		t.Fatalf("decode description: %v", err)
	}
	if description != "Followed on the way home" {
		t.Fatalf("description = %q", description)
	}
}

func TestReportRequiresValidDate(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "A", "a@x.com", "secret1")

	status, body := env.request(t, http.MethodPost, "/api/reports", token, map[string]string{
		"description": "Something happened",
		"date":        "30/08/2026",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %v", status, body)
	}

	var errs []struct {
		Field string `json:"field"`
	}
	if err := json.Unmarshal(body["errors"], &errs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "date" {
		t.Fatalf("unexpected field errors: %v", errs)
	}
}

func TestReportOptionalLocation(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "A", "a@x.com", "secret1")

	status, body := env.request(t, http.MethodPost, "/api/reports", token, map[string]string{
		"description": "No location given",
		"date":        "2026-08-30",
	})
	if status != http.StatusCreated {
		t.Fatalf("create report status = %d, body %v", status, body)
	}
	if string(body["location"]) != "null" {
		t.Fatalf("location = %s, want null", body["location"])
	}
}

func TestReportOwnerScoping(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.register(t, "A", "a@x.com", "secret1")
	tokenB, _ := env.register(t, "B", "b@x.com", "secret2")

	status, _ := env.request(t, http.MethodPost, "/api/reports", tokenA, map[string]string{
		"description": "Private report",
		"date":        "2026-08-30",
	})
	if status != http.StatusCreated {
		t.Fatalf("create report status = %d", status)
	}

	status, _ = env.request(t, http.MethodGet, "/api/reports/1", tokenB, nil)
	if status != http.StatusNotFound {
		t.Fatalf("cross-user get status = %d, want 404", status)
	}
}
