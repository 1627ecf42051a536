// Package coworking migrates the portal's coworking page content from the
// legacy normalized shape (a settings row plus a services table) into a
// single nested document in the new settings table.
package coworking

import "time"

// SettingsKey is the fixed singleton row in sh_site_settings holding both the
// live document and its backup.
const SettingsKey = "main"

// OldHeader is the legacy header blob stored in site_settings.
type OldHeader struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Address      string `json:"address"`
	WorkingHours string `json:"workingHours"`
}

// OldService is one row of the legacy coworking_info_table.
type OldService struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Period      string  `json:"period"`
	Active      bool    `json:"active"`
	Order       int     `json:"order"`
	ImageURL    string  `json:"imageUrl"`
}

// Document is the new nested shape: one blob holding the header and the
// services list.
type Document struct {
	Header      Header    `json:"header"`
	Services    []Service `json:"services"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type Header struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Address      string `json:"address"`
	WorkingHours string `json:"workingHours"`
}

type Service struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Period      string  `json:"period"`
	Active      bool    `json:"active"`
	Order       int     `json:"order"`
	ImageURL    string  `json:"imageUrl"`
}

// Backup holds a verbatim copy of the old shape, stored under a distinct key
// from the live document so Restore can rebuild the legacy tables.
type Backup struct {
	Header    *OldHeader   `json:"header"`
	Services  []OldService `json:"services"`
	CreatedAt time.Time    `json:"createdAt"`
}

// StepResult reports one migration step. Issues carries the specific
// problems found so operators do not have to dig through logs.
type StepResult struct {
	Step   string   `json:"step"`
	OK     bool     `json:"ok"`
	Issues []string `json:"issues,omitempty"`
}
