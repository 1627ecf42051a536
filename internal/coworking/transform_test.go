package coworking

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBuildDocumentDefaults(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	doc := BuildDocument(nil, nil, now)
	if doc.Header.Title != "Science Hub Coworking" {
		t.Errorf("default title = %q", doc.Header.Title)
	}
	if !doc.LastUpdated.Equal(now) {
		t.Error("lastUpdated not stamped")
	}

	partial := &OldHeader{Title: "Рабочее пространство"}
	doc = BuildDocument(partial, nil, now)
	if doc.Header.Title != "Рабочее пространство" {
		t.Errorf("explicit title lost: %q", doc.Header.Title)
	}
	if doc.Header.WorkingHours != "10:00 - 22:00" {
		t.Errorf("missing field did not fall back: %q", doc.Header.WorkingHours)
	}
}

func TestBuildDocumentServices(t *testing.T) {
	now := time.Now()
	services := []OldService{
		{Name: "Hot desk", Price: 15, Currency: "EUR", Period: "day", Active: true},
		{ID: "keep-me", Name: "Meeting room", Price: 30, Order: 7},
	}
	doc := BuildDocument(nil, services, now)

	if len(doc.Services) != 2 {
		t.Fatalf("services = %d, want 2", len(doc.Services))
	}
	if doc.Services[0].ID == "" {
		t.Error("service without id must get a generated uuid")
	}
	if doc.Services[0].Order != 1 {
		t.Errorf("missing order must default to position, got %d", doc.Services[0].Order)
	}
	if doc.Services[1].ID != "keep-me" || doc.Services[1].Order != 7 {
		t.Error("existing id/order must be preserved")
	}
}

func TestValidateRaw(t *testing.T) {
	valid, _ := json.Marshal(BuildDocument(&OldHeader{Title: "Coworking"}, []OldService{
		{ID: "a", Name: "Desk", Price: 10},
	}, time.Now()))

	ok, issues := ValidateRaw(valid)
	if !ok {
		t.Fatalf("expected valid document, issues: %v", issues)
	}

	tests := []struct {
		name     string
		doc      string
		wantIssue string
	}{
		{"missing header", `{"services":[],"lastUpdated":"2025-05-01T12:00:00Z"}`, "header is missing"},
		{"empty title", `{"header":{"title":""},"services":[],"lastUpdated":"2025-05-01T12:00:00Z"}`, "header title is empty"},
		{"services not array", `{"header":{"title":"x"},"services":{},"lastUpdated":"2025-05-01T12:00:00Z"}`, "services is not an array"},
		{"service without id", `{"header":{"title":"x"},"services":[{"name":"Desk","price":10}],"lastUpdated":"2025-05-01T12:00:00Z"}`, "service 0 has no id"},
		{"service without name", `{"header":{"title":"x"},"services":[{"id":"a","price":10}],"lastUpdated":"2025-05-01T12:00:00Z"}`, "service 0 has no name"},
		{"non-numeric price", `{"header":{"title":"x"},"services":[{"id":"a","name":"Desk","price":"ten"}],"lastUpdated":"2025-05-01T12:00:00Z"}`, "non-numeric price"},
		{"missing lastUpdated", `{"header":{"title":"x"},"services":[]}`, "lastUpdated is missing"},
		{"not json", `{{{`, "not valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, issues := ValidateRaw([]byte(tt.doc))
			if ok {
				t.Fatal("expected invalid document")
			}
			found := false
			for _, issue := range issues {
				if strings.Contains(issue, tt.wantIssue) {
					found = true
				}
			}
			if !found {
				t.Errorf("issues %v missing %q", issues, tt.wantIssue)
			}
		})
	}
}
