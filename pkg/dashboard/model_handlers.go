package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/modeldash/pkg/client"
)

// uploadRequest is the JSON form of an upload. Config and resource limits may
// be sent either as JSON objects or as the raw text an operator typed.
type uploadRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	ModelType      string          `json:"model_type"`
	Version        string          `json:"version"`
	DockerImage    string          `json:"docker_image"`
	Config         json.RawMessage `json:"config"`
	ResourceLimits json.RawMessage `json:"resource_limits"`
}

type deployRequest struct {
	CloudProvider string `json:"cloud_provider" form:"cloud_provider"`
}

type scaleRequest struct {
	Replicas  *int             `json:"replicas"`
	Resources client.Resources `json:"resources"`
}

// listModelsHandler shows one page of the catalog, sorted by ?sort=. Entries
// missing fields needed to display or deploy them are left out and counted.
func (s *Server) listModelsHandler(c *gin.Context) {
	models, err := s.api.ListModels(c.Request.Context())
	if err != nil {
		s.respondClientError(c, err)
		return
	}

	complete := make([]client.Model, 0, len(models))
	for _, m := range models {
		if m.Complete() {
			complete = append(complete, m)
		}
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(DefaultPageSize)))
	sortModels(complete, c.Query("sort"))
	items, info := paginate(complete, page, pageSize)

	c.JSON(http.StatusOK, gin.H{
		"models":     items,
		"total":      info.Total,
		"incomplete": len(models) - len(complete),
		"pagination": info,
	})
}

// uploadModelHandler accepts JSON, or multipart form data when a model file
// is attached.
func (s *Server) uploadModelHandler(c *gin.Context) {
	var desc client.ModelDescriptor

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		desc = client.ModelDescriptor{
			Name:           c.PostForm("name"),
			Description:    c.PostForm("description"),
			ModelType:      c.PostForm("model_type"),
			Version:        c.PostForm("version"),
			DockerImage:    c.PostForm("docker_image"),
			Config:         c.PostForm("config"),
			ResourceLimits: c.PostForm("resource_limits"),
		}
		if header, err := c.FormFile("file"); err == nil {
			f, err := header.Open()
			if err != nil {
				badRequest(c, err)
				return
			}
			defer f.Close()
			desc.File = &client.ModelFile{Name: header.Filename, Content: f}
		} else if !errors.Is(err, http.ErrMissingFile) {
			badRequest(c, err)
			return
		}
	} else {
		var req uploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		cfg, err := rawText(req.Config)
		if err != nil {
			badRequest(c, fmt.Errorf("config: %w", err))
			return
		}
		limits, err := rawText(req.ResourceLimits)
		if err != nil {
			badRequest(c, fmt.Errorf("resource_limits: %w", err))
			return
		}
		desc = client.ModelDescriptor{
			Name:           req.Name,
			Description:    req.Description,
			ModelType:      req.ModelType,
			Version:        req.Version,
			DockerImage:    req.DockerImage,
			Config:         cfg,
			ResourceLimits: limits,
		}
	}

	model, err := s.api.UploadModel(c.Request.Context(), desc)
	if err != nil {
		s.respondClientError(c, err)
		return
	}
	SendSuccess(c, http.StatusCreated, model)
}

// rawText returns the text an operator typed: a JSON string is unquoted,
// anything else is passed through for the client to validate.
func rawText(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", err
		}
		return text, nil
	}
	return trimmed, nil
}

func (s *Server) deployModelHandler(c *gin.Context) {
	var req deployRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	provider, err := client.ParseCloudProvider(req.CloudProvider)
	if err != nil {
		// Unknown providers are rejected by the client with the accepted list.
		provider = client.CloudProvider(req.CloudProvider)
	}

	deployment, err := s.api.DeployModel(c.Request.Context(), client.DeploymentRequest{
		ModelID:       client.ID(c.Param("id")),
		CloudProvider: provider,
	})
	if err != nil {
		s.respondClientError(c, err)
		return
	}
	SendSuccess(c, http.StatusCreated, deployment)
}

func (s *Server) scaleModelHandler(c *gin.Context) {
	var req scaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Replicas == nil {
		badRequest(c, fmt.Errorf("replicas is required"))
		return
	}

	result, err := s.api.ScaleModel(c.Request.Context(), c.Param("id"), client.ScaleRequest{
		Replicas:  *req.Replicas,
		Resources: req.Resources,
	})
	if err != nil {
		s.respondClientError(c, err)
		return
	}
	SendSuccess(c, http.StatusOK, result)
}

func (s *Server) deleteModelHandler(c *gin.Context) {
	if err := s.api.DeleteModel(c.Request.Context(), c.Param("id")); err != nil {
		s.respondClientError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) modelMetricsHandler(c *gin.Context) {
	metrics, err := s.api.GetModelMetrics(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondClientError(c, err)
		return
	}
	SendSuccess(c, http.StatusOK, metrics)
}
