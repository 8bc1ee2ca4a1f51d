package view

import "fmt"

// Profile holds the per-application page chrome.
type Profile struct {
	Title            string
	Heading          string
	Highlight        string
	Tagline          string
	Theme            string
	ShowTenantColumn bool
}

// AdminProfile is the internal multi-tenant dashboard.
func AdminProfile() Profile {
	return Profile{
		Title:            "SK8 Admin - Pipeline Dashboard",
		Heading:          "SK8 Admin",
		Tagline:          "Multi-tenant Pipeline Dashboard",
		Theme:            "admin",
		ShowTenantColumn: true,
	}
}

// EmbeddedProfile is the single-tenant dashboard branded for vendor.
func EmbeddedProfile(vendor string) Profile {
	return Profile{
		Title:     fmt.Sprintf("%s - Powered by SK8", vendor),
		Heading:   fmt.Sprintf("Amazing %s App Using SK8", vendor),
		Highlight: vendor,
		Tagline:   "Powered by SK8 Pipelines",
		Theme:     "embedded",
	}
}
