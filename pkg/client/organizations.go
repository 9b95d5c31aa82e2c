package client

import (
	"context"
	"net/http"
	"strings"
)

func (c *Client) CreateOrganization(ctx context.Context, req OrganizationRequest) (*Organization, error) {
	const op = "create organization"
	if strings.TrimSpace(req.Name) == "" {
		return nil, validationError(op, "organization name is required")
	}

	cl, err := jsonCall(op, http.MethodPost, "/organizations/", req)
	if err != nil {
		return nil, err
	}
	var org Organization
	if err := c.do(ctx, cl, &org); err != nil {
		return nil, err
	}
	return &org, nil
}
