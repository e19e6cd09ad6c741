package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/decoaromas/decoaromas-admin/internal/availability"
)

type checkEndpoint struct {
	path  string
	param string
}

var checkEndpoints = map[string]checkEndpoint{
	availability.EntityProductName: {path: "/api/productos/check-nombre", param: "nombre"},
	availability.EntityProductSKU:  {path: "/api/productos/check-sku", param: "sku"},
	availability.EntityAromaName:   {path: "/api/aromas/check-nombre", param: "nombre"},
	availability.EntityFamilyName:  {path: "/api/familias/check-nombre", param: "nombre"},
	availability.EntityUsername:    {path: "/api/usuarios/check-username", param: "username"},
	availability.EntityEmail:       {path: "/api/usuarios/check-email", param: "email"},
}

type checkResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// CheckAvailability asks the backend whether value is free for entity.
// A 409 with available=false is the backend's "taken" answer, not a failure.
func (c *Client) CheckAvailability(ctx context.Context, entity, value string) availability.Result {
	ep, ok := checkEndpoints[entity]
	if !ok {
		return availability.Transient(fmt.Errorf("backend: no availability endpoint for %q", entity))
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(ep.param, value).
		Get(ep.path)
	if err != nil {
		return availability.Transient(fmt.Errorf("backend: check %s: %w", entity, err))
	}
	var body checkResponse
	switch resp.StatusCode() {
	case http.StatusOK:
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return availability.Transient(fmt.Errorf("backend: decode %s check: %w", entity, err))
		}
		if body.Available {
			return availability.Available(body.Message)
		}
		return availability.Taken(body.Message)
	case http.StatusConflict:
		if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Available {
			return availability.Transient(fmt.Errorf("backend: unexpected %s conflict body", entity))
		}
		return availability.Taken(body.Message)
	default:
		return availability.Transient(statusErr(resp))
	}
}

// Checker binds CheckAvailability to one entity.
func (c *Client) Checker(entity string) availability.Checker {
	return availability.CheckerFunc(func(ctx context.Context, value string) availability.Result {
		return c.CheckAvailability(ctx, entity, value)
	})
}
