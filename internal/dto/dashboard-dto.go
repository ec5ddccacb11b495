package dto

import "encoding/json"

type CreateDashboardDTO struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Layout      json.RawMessage `json:"layout"`
	IsDefault   bool            `json:"is_default"`
	IsPublic    bool            `json:"is_public"`
	OwnerID     uint64          `json:"owner_id"`
}

type UpdateDashboardDTO struct {
	Name        *string         `json:"name" validate:"omitempty,max=100"`
	Description *string         `json:"description" validate:"omitempty,max=500"`
	Layout      json.RawMessage `json:"layout"`
	IsDefault   *bool           `json:"is_default"`
	IsPublic    *bool           `json:"is_public"`
}

type WidgetPositionDTO struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width" validate:"omitempty,min=1"`
	Height int `json:"height" validate:"omitempty,min=1"`
}

type CreateWidgetDTO struct {
	DashboardID     uint64            `json:"dashboard_id" validate:"required"`
	Type            string            `json:"type" validate:"required"`
	Title           string            `json:"title" validate:"required,max=100"`
	DataSource      string            `json:"data_source"`
	Configuration   json.RawMessage   `json:"configuration"`
	Position        WidgetPositionDTO `json:"position"`
	RefreshInterval int               `json:"refresh_interval" validate:"omitempty,min=5"`
	IsVisible       *bool             `json:"is_visible"`
}

type UpdateWidgetDTO struct {
	Title           *string            `json:"title" validate:"omitempty,max=100"`
	DataSource      *string            `json:"data_source"`
	Configuration   json.RawMessage    `json:"configuration"`
	Position        *WidgetPositionDTO `json:"position"`
	RefreshInterval *int               `json:"refresh_interval" validate:"omitempty,min=5"`
	IsVisible       *bool              `json:"is_visible"`
}
