package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ID is a resource identifier. The API emits numeric ids; strings are
// accepted too so the client does not care which one a deployment uses.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits integer ids as numbers and anything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Credentials are used once to build a login request and never persisted.
type Credentials struct {
	Username string
	Password string
}

// LoginResponse is the OAuth2 password-grant answer of POST /token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegistrationRequest creates a user. A zero OrganizationID is sent as 0.
type RegistrationRequest struct {
	Email          string `json:"email"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	OrganizationID int    `json:"organization_id"`
}

type User struct {
	ID             ID     `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	OrganizationID ID     `json:"organization_id,omitempty"`
	IsActive       *bool  `json:"is_active,omitempty"`
}

// Model is one entry of the model catalog. Raw keeps the element exactly as
// the server sent it.
type Model struct {
	ID             ID              `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	ModelType      string          `json:"model_type"`
	Version        string          `json:"version"`
	DockerImage    string          `json:"docker_image"`
	Status         string          `json:"status,omitempty"`
	Config         json.RawMessage `json:"config,omitempty"`
	ResourceLimits json.RawMessage `json:"resource_limits,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (m *Model) UnmarshalJSON(data []byte) error {
	type plain Model
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Model(p)
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Complete reports whether the catalog entry carries everything needed to
// show and deploy it.
func (m Model) Complete() bool {
	return m.Name != "" && m.ModelType != "" && m.Version != "" && m.DockerImage != ""
}

// ModelFile is optional binary content uploaded alongside a descriptor.
type ModelFile struct {
	Name    string
	Content io.Reader
}

// ModelDescriptor is the upload form. Config and ResourceLimits hold raw
// JSON text as typed by the operator; blank means {}.
type ModelDescriptor struct {
	Name           string
	Description    string
	ModelType      string
	Version        string
	DockerImage    string
	Config         string
	ResourceLimits string
	File           *ModelFile
}

type modelPayload struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	ModelType      string         `json:"model_type"`
	Version        string         `json:"version"`
	DockerImage    string         `json:"docker_image"`
	Config         map[string]any `json:"config"`
	ResourceLimits map[string]any `json:"resource_limits"`
}

// CloudProvider is a deployment target.
type CloudProvider string

const (
	AWS   CloudProvider = "AWS"
	GCP   CloudProvider = "GCP"
	Azure CloudProvider = "Azure"
)

// CloudProviders lists every accepted deployment target.
var CloudProviders = []CloudProvider{AWS, GCP, Azure}

// Valid checks if the provider is one the API accepts
func (p CloudProvider) Valid() bool {
	switch p {
	case AWS, GCP, Azure:
		return true
	default:
		return false
	}
}

// ParseCloudProvider matches s case-insensitively against CloudProviders.
func ParseCloudProvider(s string) (CloudProvider, error) {
	for _, p := range CloudProviders {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown cloud provider %q (expected one of AWS, GCP, Azure)", s)
}

type DeploymentRequest struct {
	ModelID       ID            `json:"model_id"`
	CloudProvider CloudProvider `json:"cloud_provider"`
}

type Deployment struct {
	ID            ID            `json:"id"`
	ModelID       ID            `json:"model_id"`
	CloudProvider CloudProvider `json:"cloud_provider"`
	Status        string        `json:"status,omitempty"`
	Endpoint      string        `json:"endpoint,omitempty"`
}

type Resources struct {
	CPU    string `json:"cpu"`
	Memory string `json:"memory"`
}

type ScaleRequest struct {
	Replicas  int       `json:"replicas"`
	Resources Resources `json:"resources"`
}

// Object is a JSON object whose shape the client does not interpret.
type Object map[string]any

// ModelMetrics is the metrics document of one model.
type ModelMetrics = Object

type OrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Organization struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
