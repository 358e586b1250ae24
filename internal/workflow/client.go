// Package workflow is a client for the Camunda 7 REST API.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotStarted is returned when the client is used before Start or after Stop
var ErrNotStarted = errors.New("workflow client not started")

// EngineError is returned for non-2xx responses from the engine
type EngineError struct {
	StatusCode int
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *EngineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("workflow engine returned %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("workflow engine returned %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the engine
func IsNotFound(err error) bool {
	var engineErr *EngineError
	return errors.As(err, &engineErr) && engineErr.StatusCode == http.StatusNotFound
}

// ProcessInstance is a running or finished process
type ProcessInstance struct {
	ID           string `json:"id"`
	DefinitionID string `json:"definitionId"`
	BusinessKey  string `json:"businessKey"`
	Ended        bool   `json:"ended"`
	Suspended    bool   `json:"suspended"`
	TenantID     string `json:"tenantId,omitempty"`
}

// Task is a user task waiting for completion
type Task struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Assignee          string `json:"assignee,omitempty"`
	ProcessInstanceID string `json:"processInstanceId"`
	TaskDefinitionKey string `json:"taskDefinitionKey"`
	Created           string `json:"created"`
	TenantID          string `json:"tenantId,omitempty"`
}

// TaskQuery filters ListTasks. Empty fields are ignored.
type TaskQuery struct {
	ProcessInstanceID    string
	Assignee             string
	CandidateUser        string
	ProcessDefinitionKey string
}

// StartRequest starts a process by definition key
type StartRequest struct {
	DefinitionKey string
	BusinessKey   string
	TenantID      string
	Variables     map[string]interface{}
}

// MessageRequest correlates a message with a process
type MessageRequest struct {
	MessageName      string
	BusinessKey      string
	TenantID         string
	ProcessVariables map[string]interface{}
	CorrelationKeys  map[string]interface{}
}

// CorrelationResult is the outcome of a message correlation
type CorrelationResult struct {
	ResultType      string           `json:"resultType"`
	ProcessInstance *ProcessInstance `json:"processInstance,omitempty"`
}

// Config configures a Client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the engine REST API. It must be started before use.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger

	mu         sync.RWMutex
	httpClient *http.Client
}

// NewClient creates a new Client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Start opens the client's connection pool
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient != nil {
		return
	}
	c.httpClient = &http.Client{
		Timeout: c.timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	c.logger.Info("workflow client started", zap.String("base_url", c.baseURL))
}

// Stop closes idle connections. Calls after Stop fail with ErrNotStarted.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
	c.httpClient = nil
	c.logger.Info("workflow client stopped")
}

// StartProcess starts a process instance, on the tenant's deployment when
// TenantID is set
func (c *Client) StartProcess(ctx context.Context, req StartRequest) (*ProcessInstance, error) {
	path := "/process-definition/key/" + url.PathEscape(req.DefinitionKey)
	if req.TenantID != "" {
		path += "/tenant-id/" + url.PathEscape(req.TenantID)
	}
	path += "/start"

	body := map[string]interface{}{
		"variables": ToVariables(req.Variables),
	}
	if req.BusinessKey != "" {
		body["businessKey"] = req.BusinessKey
	}

	var instance ProcessInstance
	if err := c.do(ctx, http.MethodPost, path, nil, body, &instance); err != nil {
		c.logger.Error("failed to start process",
			zap.String("definition_key", req.DefinitionKey),
			zap.String("business_key", req.BusinessKey),
			zap.Error(err))
		return nil, err
	}

	c.logger.Info("process started",
		zap.String("definition_key", req.DefinitionKey),
		zap.String("business_key", req.BusinessKey),
		zap.String("process_instance_id", instance.ID))
	return &instance, nil
}

// CorrelateMessage delivers a message to a waiting or message-started process
func (c *Client) CorrelateMessage(ctx context.Context, req MessageRequest) (*CorrelationResult, error) {
	body := map[string]interface{}{
		"messageName":      req.MessageName,
		"processVariables": ToVariables(req.ProcessVariables),
		"resultEnabled":    true,
	}
	if req.BusinessKey != "" {
		body["businessKey"] = req.BusinessKey
	}
	if req.TenantID != "" {
		body["tenantId"] = req.TenantID
	}
	if len(req.CorrelationKeys) > 0 {
		body["correlationKeys"] = ToVariables(req.CorrelationKeys)
	}

	var results []CorrelationResult
	if err := c.do(ctx, http.MethodPost, "/message", nil, body, &results); err != nil {
		c.logger.Error("failed to correlate message",
			zap.String("message", req.MessageName),
			zap.String("business_key", req.BusinessKey),
			zap.Error(err))
		return nil, err
	}

	result := &CorrelationResult{}
	if len(results) > 0 {
		result = &results[0]
	}
	c.logger.Info("message correlated",
		zap.String("message", req.MessageName),
		zap.String("business_key", req.BusinessKey),
		zap.String("result_type", result.ResultType))
	return result, nil
}

// GetProcessInstance returns a process instance by id
func (c *Client) GetProcessInstance(ctx context.Context, id string) (*ProcessInstance, error) {
	var instance ProcessInstance
	if err := c.do(ctx, http.MethodGet, "/process-instance/"+url.PathEscape(id), nil, nil, &instance); err != nil {
		return nil, err
	}
	return &instance, nil
}

// ListTasks returns the user tasks matching q
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]Task, error) {
	params := url.Values{}
	if q.ProcessInstanceID != "" {
		params.Set("processInstanceId", q.ProcessInstanceID)
	}
	if q.Assignee != "" {
		params.Set("assignee", q.Assignee)
	}
	if q.CandidateUser != "" {
		params.Set("candidateUser", q.CandidateUser)
	}
	if q.ProcessDefinitionKey != "" {
		params.Set("processDefinitionKey", q.ProcessDefinitionKey)
	}

	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/task", params, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CompleteTask completes a user task with the given variables
func (c *Client) CompleteTask(ctx context.Context, taskID string, vars map[string]interface{}) error {
	body := map[string]interface{}{
		"variables": ToVariables(vars),
	}
	if err := c.do(ctx, http.MethodPost, "/task/"+url.PathEscape(taskID)+"/complete", nil, body, nil); err != nil {
		c.logger.Error("failed to complete task", zap.String("task_id", taskID), zap.Error(err))
		return err
	}
	c.logger.Info("task completed", zap.String("task_id", taskID))
	return nil
}

// GetVariables returns the plain values of a process instance's variables
func (c *Client) GetVariables(ctx context.Context, processInstanceID string) (map[string]interface{}, error) {
	var raw map[string]Variable
	path := "/process-instance/" + url.PathEscape(processInstanceID) + "/variables"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	vars := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		vars[k] = v.Value
	}
	return vars, nil
}

// DeleteProcessInstance cancels a running process instance
func (c *Client) DeleteProcessInstance(ctx context.Context, id, reason string) error {
	params := url.Values{}
	if reason != "" {
		params.Set("deleteReason", reason)
	}
	if err := c.do(ctx, http.MethodDelete, "/process-instance/"+url.PathEscape(id), params, nil, nil); err != nil {
		c.logger.Error("failed to delete process instance", zap.String("process_instance_id", id), zap.Error(err))
		return err
	}
	c.logger.Info("process instance deleted", zap.String("process_instance_id", id), zap.String("reason", reason))
	return nil
}

func (c *Client) client() (*http.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.httpClient == nil {
		return nil, ErrNotStarted
	}
	return c.httpClient, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, in, out interface{}) error {
	httpClient, err := c.client()
	if err != nil {
		return err
	}

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("workflow engine request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		engineErr := &EngineError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, engineErr)
		return engineErr
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
