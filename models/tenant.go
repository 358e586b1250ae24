package models

import "time"

// Tenant is an isolated customer organization
type Tenant struct {
	ID        string                 `json:"id" db:"id"`
	Name      string                 `json:"name" db:"name"`
	Domain    string                 `json:"domain" db:"domain"`
	IsActive  bool                   `json:"is_active" db:"is_active"`
	Settings  map[string]interface{} `json:"settings" db:"settings"` // JSONB
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new active Tenant
func NewTenant(id, name, domain string, settings map[string]interface{}) *Tenant {
	now := time.Now()
	if settings == nil {
		settings = map[string]interface{}{}
	}
	return &Tenant{
		ID:        id,
		Name:      name,
		Domain:    domain,
		IsActive:  true,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Context returns the request-scoped view of the tenant
func (t *Tenant) Context() *TenantContext {
	settings := make(map[string]interface{}, len(t.Settings))
	for k, v := range t.Settings {
		settings[k] = v
	}
	return &TenantContext{
		TenantID:   t.ID,
		TenantName: t.Name,
		Domain:     t.Domain,
		IsActive:   t.IsActive,
		Settings:   settings,
	}
}

// TenantContext is the resolved tenant identity attached to a request
type TenantContext struct {
	TenantID   string                 `json:"tenant_id"`
	TenantName string                 `json:"tenant_name"`
	Domain     string                 `json:"domain,omitempty"`
	IsActive   bool                   `json:"is_active"`
	Settings   map[string]interface{} `json:"settings,omitempty"`
}

// Setting returns a tenant setting and whether it is configured
func (c *TenantContext) Setting(key string) (interface{}, bool) {
	if c == nil || c.Settings == nil {
		return nil, false
	}
	v, ok := c.Settings[key]
	return v, ok
}
