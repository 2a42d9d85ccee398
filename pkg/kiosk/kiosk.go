// Package kiosk provides a client for IoT voting kiosks talking to a
// pollwave server.
package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pollwave/pollwave/internal/logger"
)

// Device mirrors the server's kiosk device record
type Device struct {
	ID         string     `json:"id"`
	KioskID    string     `json:"kiosk_id"`
	Location   string     `json:"location,omitempty"`
	DeviceType string     `json:"device_type"`
	Active     bool       `json:"active"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
}

// Config mirrors the server's per-device config
type Config struct {
	PollIntervalMs      int     `json:"poll_interval_ms"`
	DisplayTimeoutMs    int     `json:"display_timeout_ms"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	AnomalyThreshold    float64 `json:"anomaly_threshold"`
	SmoothingAlpha      float64 `json:"smoothing_alpha"`
	Enabled             bool    `json:"enabled"`
	ConfigVersion       int     `json:"config_version"`
}

// Poll is the subset of poll fields a kiosk needs to render
type Poll struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Question string `json:"question"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	Options  []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		OrderNum int    `json:"order_num"`
	} `json:"options"`
}

// SyncResult is the server's answer to a kiosk check-in
type SyncResult struct {
	Device      Device    `json:"device"`
	Config      Config    `json:"config"`
	ActivePolls []Poll    `json:"active_polls"`
	SyncedAt    time.Time `json:"synced_at"`
}

// VoteSubmission is one kiosk-collected vote
type VoteSubmission struct {
	DeviceID     string          `json:"device_id"`
	PollID       string          `json:"poll_id"`
	OptionID     string          `json:"option_id,omitempty"`
	OptionIDs    []string        `json:"option_ids,omitempty"`
	Rating       *int            `json:"rating,omitempty"`
	TextAnswer   string          `json:"text_answer,omitempty"`
	VotingTimeMs int             `json:"voting_time_ms"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// VoteReceipt is the server's record of a submitted vote
type VoteReceipt struct {
	ID               string  `json:"id"`
	Confidence       float64 `json:"confidence"`
	AnomalyScore     float64 `json:"anomaly_score"`
	Entropy          float64 `json:"entropy"`
	Suspicious       bool    `json:"suspicious"`
	ValidationStatus string  `json:"validation_status"`
}

// Client defines the interface for kiosk-to-server operations
type Client interface {
	// Register creates the device record on first boot
	Register(ctx context.Context, kioskID, location, deviceType string) (*Device, error)
	// Sync checks in with the server and returns config plus active polls
	Sync(ctx context.Context, kioskID string) (*SyncResult, error)
	// SubmitVote uploads one collected vote
	SubmitVote(ctx context.Context, vote VoteSubmission) (*VoteReceipt, error)
	// BaseURL returns the configured server base URL
	BaseURL() string
}

// HTTPClient is a real HTTP client for the pollwave API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger

	// last seen config version; Sync reports whether it changed
	configVersion int
}

// NewHTTPClient creates a new kiosk HTTP client
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// NewHTTPClientWithHTTPClient creates a kiosk client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, httpClient: httpClient, log: log}
}

// BaseURL returns the configured server base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// ConfigVersion returns the config version seen on the last sync
func (c *HTTPClient) ConfigVersion() int {
	return c.configVersion
}

// doRequest executes a JSON POST and decodes the response
func (c *HTTPClient) doRequest(ctx context.Context, path string, payload, response interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	url := c.baseURL + path
	c.log.Debug("kiosk request", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(raw))
	}
	if response != nil {
		if err := json.Unmarshal(raw, response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Register creates the device record on first boot
func (c *HTTPClient) Register(ctx context.Context, kioskID, location, deviceType string) (*Device, error) {
	var device Device
	err := c.doRequest(ctx, "/api/iot/devices", map[string]string{
		"kiosk_id":    kioskID,
		"location":    location,
		"device_type": deviceType,
	}, &device)
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// Sync checks in with the server. The returned config's version is cached so
// the firmware can cheaply detect config changes between syncs.
func (c *HTTPClient) Sync(ctx context.Context, kioskID string) (*SyncResult, error) {
	var result SyncResult
	if err := c.doRequest(ctx, "/api/iot/devices/"+kioskID+"/sync", nil, &result); err != nil {
		return nil, err
	}
	if result.Config.ConfigVersion != c.configVersion {
		c.log.Info("device config changed", "config_version", result.Config.ConfigVersion)
		c.configVersion = result.Config.ConfigVersion
	}
	return &result, nil
}

// SubmitVote uploads one collected vote
func (c *HTTPClient) SubmitVote(ctx context.Context, vote VoteSubmission) (*VoteReceipt, error) {
	var receipt VoteReceipt
	if err := c.doRequest(ctx, "/api/iot/votes", vote, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
