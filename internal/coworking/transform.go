package coworking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Header defaults applied when the legacy row is missing or sparse.
var defaultHeader = Header{
	Title:        "Science Hub Coworking",
	Description:  "Workspace and meeting rooms at the Science Hub",
	WorkingHours: "10:00 - 22:00",
}

// BuildDocument assembles the new nested document from the legacy shape.
// Missing header fields fall back to defaults; services without an id get a
// fresh UUID and a missing order defaults to the row's position.
func BuildDocument(old *OldHeader, services []OldService, now time.Time) Document {
	header := defaultHeader
	if old != nil {
		if old.Title != "" {
			header.Title = old.Title
		}
		if old.Description != "" {
			header.Description = old.Description
		}
		if old.Address != "" {
			header.Address = old.Address
		}
		if old.WorkingHours != "" {
			header.WorkingHours = old.WorkingHours
		}
	}

	converted := make([]Service, 0, len(services))
	for i, s := range services {
		svc := Service{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Price:       s.Price,
			Currency:    s.Currency,
			Period:      s.Period,
			Active:      s.Active,
			Order:       s.Order,
			ImageURL:    s.ImageURL,
		}
		if svc.ID == "" {
			svc.ID = uuid.NewString()
		}
		if svc.Order == 0 {
			svc.Order = i + 1
		}
		converted = append(converted, svc)
	}

	return Document{
		Header:      header,
		Services:    converted,
		LastUpdated: now,
	}
}

// ValidateRaw structurally checks a live document blob: the header must exist
// with a non-empty title, services must be an array whose elements carry an
// id, a name and a numeric price, and lastUpdated must be present. Returns
// the validity flag plus every violation found.
func ValidateRaw(data []byte) (bool, []string) {
	var issues []string

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, []string{fmt.Sprintf("document is not valid JSON: %v", err)}
	}

	header, ok := doc["header"].(map[string]interface{})
	if !ok {
		issues = append(issues, "header is missing")
	} else if title, _ := header["title"].(string); title == "" {
		issues = append(issues, "header title is empty")
	}

	services, ok := doc["services"].([]interface{})
	if !ok {
		issues = append(issues, "services is not an array")
	} else {
		for i, raw := range services {
			svc, ok := raw.(map[string]interface{})
			if !ok {
				issues = append(issues, fmt.Sprintf("service %d is not an object", i))
				continue
			}
			if id, _ := svc["id"].(string); id == "" {
				issues = append(issues, fmt.Sprintf("service %d has no id", i))
			}
			if name, _ := svc["name"].(string); name == "" {
				issues = append(issues, fmt.Sprintf("service %d has no name", i))
			}
			if _, ok := svc["price"].(float64); !ok {
				issues = append(issues, fmt.Sprintf("service %d has a non-numeric price", i))
			}
		}
	}

	if lu, _ := doc["lastUpdated"].(string); lu == "" {
		issues = append(issues, "lastUpdated is missing")
	}

	return len(issues) == 0, issues
}
