package client

import (
	"context"
	"net/http"
	"strings"
)

// DeployModel deploys a model to one of CloudProviders.
func (c *Client) DeployModel(ctx context.Context, req DeploymentRequest) (*Deployment, error) {
	const op = "deploy model"
	if strings.TrimSpace(string(req.ModelID)) == "" {
		return nil, validationError(op, "model id is required")
	}
	if !req.CloudProvider.Valid() {
		return nil, validationError(op, "cloud provider must be one of AWS, GCP, Azure, got %q", req.CloudProvider)
	}

	cl, err := jsonCall(op, http.MethodPost, "/deployments/", req)
	if err != nil {
		return nil, err
	}
	var deployment Deployment
	if err := c.do(ctx, cl, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}
