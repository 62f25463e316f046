package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
)

// Schedule is the CLI view of an email report schedule.
type Schedule struct {
	ID             uint   `json:"ID"`
	Active         bool   `json:"active"`
	Crontab        string `json:"crontab"`
	Recipients     string `json:"recipients"`
	DeliverAsGroup bool   `json:"deliver_as_group"`
	DeliveryType   string `json:"delivery_type"`
}

// RunRecord is the CLI view of one task run.
type RunRecord struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	ETA      time.Time     `json:"eta"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Status   string        `json:"status"`
	Error    string        `json:"error"`
}

type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *APIClient) doRequest(method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	token := viper.GetString("token")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(respBody))
	}

	return respBody, nil
}

func (c *APIClient) Login(username, password string) (string, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	resp, err := c.doRequest("POST", "/api/v1/auth/login", body)
	if err != nil {
		return "", err
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}

	return result.Token, nil
}

func (c *APIClient) ListSchedules(reportType string) ([]Schedule, error) {
	resp, err := c.doRequest("GET", "/api/v1/schedules/"+reportType, nil)
	if err != nil {
		return nil, err
	}

	var schedules []Schedule
	if err := json.Unmarshal(resp, &schedules); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (c *APIClient) ListRuns() ([]RunRecord, error) {
	resp, err := c.doRequest("GET", "/api/v1/runs", nil)
	if err != nil {
		return nil, err
	}

	var records []RunRecord
	if err := json.Unmarshal(resp, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (c *APIClient) TriggerRun(reportType string, scheduleID uint) (string, error) {
	resp, err := c.doRequest("POST", fmt.Sprintf("/api/v1/schedules/%s/%d/run", reportType, scheduleID), nil)
	if err != nil {
		return "", err
	}

	var result struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}

	return result.TaskID, nil
}
