package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// ListModels returns the model catalog. The server may answer with a bare
// array or with {"models": [...]}; any other shape is a MalformedPayload
// wrapping ErrUnexpectedFormat.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	const op = "list models"

	var raw json.RawMessage
	if err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/models/"}, &raw); err != nil {
		return nil, err
	}

	models, err := decodeModelList(raw)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindMalformedPayload, Status: http.StatusOK, Detail: err.Error(), Err: ErrUnexpectedFormat}
	}
	return models, nil
}

// decodeModelList tries the bare array first, then the wrapped form.
func decodeModelList(raw json.RawMessage) ([]Model, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no data received from server")
	}

	switch trimmed[0] {
	case '[':
		var models []Model
		if err := json.Unmarshal(trimmed, &models); err != nil {
			return nil, fmt.Errorf("decode model array: %w", err)
		}
		return models, nil
	case '{':
		var wrapped struct {
			Models json.RawMessage `json:"models"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode model object: %w", err)
		}
		inner := bytes.TrimSpace(wrapped.Models)
		if len(inner) == 0 || inner[0] != '[' {
			return nil, fmt.Errorf("object has no models array")
		}
		var models []Model
		if err := json.Unmarshal(inner, &models); err != nil {
			return nil, fmt.Errorf("decode models field: %w", err)
		}
		return models, nil
	default:
		return nil, fmt.Errorf("expected array or object, got %q", string(trimmed[:1]))
	}
}

// UploadModel registers a model. Config and ResourceLimits are checked
// locally first; invalid JSON fails with KindLocalValidation and nothing is
// sent. With File set the request is multipart/form-data, otherwise JSON.
func (c *Client) UploadModel(ctx context.Context, desc ModelDescriptor) (*Model, error) {
	const op = "upload model"

	if strings.TrimSpace(desc.Name) == "" {
		return nil, validationError(op, "name is required")
	}
	cfg, err := parseJSONObject(desc.Config)
	if err != nil {
		return nil, validationError(op, "config must be valid JSON: %v", err)
	}
	limits, err := parseJSONObject(desc.ResourceLimits)
	if err != nil {
		return nil, validationError(op, "resource limits must be valid JSON: %v", err)
	}

	payload := modelPayload{
		Name:           desc.Name,
		Description:    desc.Description,
		ModelType:      desc.ModelType,
		Version:        desc.Version,
		DockerImage:    desc.DockerImage,
		Config:         cfg,
		ResourceLimits: limits,
	}

	var cl call
	if desc.File != nil && desc.File.Content != nil {
		cl = multipartCall(op, "/models/", payload, desc.File)
	} else {
		cl, err = jsonCall(op, http.MethodPost, "/models/", payload)
		if err != nil {
			return nil, err
		}
	}

	var model Model
	if err := c.do(ctx, cl, &model); err != nil {
		return nil, err
	}
	return &model, nil
}

// parseJSONObject parses operator-typed JSON; blank input is an empty object.
func parseJSONObject(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return obj, nil
}

// multipartCall streams the descriptor fields and the file through a pipe so
// large model files are never buffered whole.
func multipartCall(op, path string, payload modelPayload, file *ModelFile) call {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeModelForm(mw, payload, file))
	}()

	return call{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        pr,
		contentType: mw.FormDataContentType(),
	}
}

func writeModelForm(mw *multipart.Writer, payload modelPayload, file *ModelFile) error {
	cfg, err := json.Marshal(payload.Config)
	if err != nil {
		return err
	}
	limits, err := json.Marshal(payload.ResourceLimits)
	if err != nil {
		return err
	}

	fields := [][2]string{
		{"name", payload.Name},
		{"description", payload.Description},
		{"model_type", payload.ModelType},
		{"version", payload.Version},
		{"docker_image", payload.DockerImage},
		{"config", string(cfg)},
		{"resource_limits", string(limits)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	name := file.Name
	if name == "" {
		name = "model.bin"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return err
	}
	return mw.Close()
}

// ScaleModel changes the replica count and per-replica resources of a model.
func (c *Client) ScaleModel(ctx context.Context, modelID string, req ScaleRequest) (Object, error) {
	const op = "scale model"
	if strings.TrimSpace(modelID) == "" {
		return nil, validationError(op, "model id is required")
	}
	if req.Replicas < 0 {
		return nil, validationError(op, "replicas must not be negative, got %d", req.Replicas)
	}

	cl, err := jsonCall(op, http.MethodPost, "/models/"+escapeID(modelID)+"/scale", req)
	if err != nil {
		return nil, err
	}
	var out Object
	if err := c.do(ctx, cl, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteModel(ctx context.Context, modelID string) error {
	const op = "delete model"
	if strings.TrimSpace(modelID) == "" {
		return validationError(op, "model id is required")
	}
	return c.do(ctx, call{op: op, method: http.MethodDelete, path: "/models/" + escapeID(modelID)}, nil)
}

func (c *Client) GetModelMetrics(ctx context.Context, modelID string) (ModelMetrics, error) {
	const op = "get model metrics"
	if strings.TrimSpace(modelID) == "" {
		return nil, validationError(op, "model id is required")
	}

	var metrics ModelMetrics
	if err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/models/" + escapeID(modelID) + "/metrics"}, &metrics); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = ModelMetrics{}
	}
	return metrics, nil
}
