package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy holds the access and upload rules shared by every component
type Policy struct {
	// ElevatedRoles bypass every access check
	ElevatedRoles []string `yaml:"elevated_roles"`
	// ReassignRoles may additionally move content across departments
	ReassignRoles []string `yaml:"reassign_roles"`
	// GeneralDepartmentID is readable by every authenticated principal
	GeneralDepartmentID string `yaml:"general_department_id"`

	AllowedExtensions []string `yaml:"allowed_extensions"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes"`
}

// DefaultPolicy returns the built-in rules
func DefaultPolicy() Policy {
	return Policy{
		ElevatedRoles:       []string{"admin", "manager"},
		ReassignRoles:       []string{"admin"},
		GeneralDepartmentID: "general",
		AllowedExtensions:   DefaultAllowedExtensions,
		MaxUploadBytes:      50 << 20,
	}
}

// LoadFile overlays the fields present in a YAML policy file
func (p *Policy) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}
	return p.Parse(data)
}

// Parse overlays the fields present in YAML data
func (p *Policy) Parse(data []byte) error {
	var overlay Policy
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse policy file: %w", err)
	}
	if overlay.ElevatedRoles != nil {
		p.ElevatedRoles = overlay.ElevatedRoles
	}
	if overlay.ReassignRoles != nil {
		p.ReassignRoles = overlay.ReassignRoles
	}
	if overlay.GeneralDepartmentID != "" {
		p.GeneralDepartmentID = overlay.GeneralDepartmentID
	}
	if overlay.AllowedExtensions != nil {
		p.AllowedExtensions = overlay.AllowedExtensions
	}
	if overlay.MaxUploadBytes > 0 {
		p.MaxUploadBytes = overlay.MaxUploadBytes
	}
	p.normalize()
	return nil
}

// normalize lowercases extensions and makes sure each starts with a dot
func (p *Policy) normalize() {
	exts := make([]string, 0, len(p.AllowedExtensions))
	for _, ext := range p.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	p.AllowedExtensions = exts
}
