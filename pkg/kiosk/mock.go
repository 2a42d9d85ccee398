package kiosk

import (
	"context"
)

// MockClient is a mock kiosk client for testing
type MockClient struct {
	device      *Device
	syncResult  *SyncResult
	receipt     *VoteReceipt
	registerErr error
	syncErr     error
	submitErr   error
	baseURL     string

	// recorded calls
	Submitted []VoteSubmission
	SyncCalls int
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithDevice sets the device returned from Register
func WithDevice(d *Device) MockOption {
	return func(m *MockClient) {
		m.device = d
	}
}

// WithSyncResult sets the result returned from Sync
func WithSyncResult(r *SyncResult) MockOption {
	return func(m *MockClient) {
		m.syncResult = r
	}
}

// WithReceipt sets the receipt returned from SubmitVote
func WithReceipt(r *VoteReceipt) MockOption {
	return func(m *MockClient) {
		m.receipt = r
	}
}

// WithRegisterError sets an error to return from Register
func WithRegisterError(err error) MockOption {
	return func(m *MockClient) {
		m.registerErr = err
	}
}

// WithSyncError sets an error to return from Sync
func WithSyncError(err error) MockOption {
	return func(m *MockClient) {
		m.syncErr = err
	}
}

// WithSubmitError sets an error to return from SubmitVote
func WithSubmitError(err error) MockOption {
	return func(m *MockClient) {
		m.submitErr = err
	}
}

// NewMockClient creates a mock client with the given options
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{baseURL: "http://mock"}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register implements Client
func (m *MockClient) Register(ctx context.Context, kioskID, location, deviceType string) (*Device, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	if m.device != nil {
		return m.device, nil
	}
	return &Device{ID: "mock-device", KioskID: kioskID, Location: location, DeviceType: deviceType, Active: true}, nil
}

// Sync implements Client
func (m *MockClient) Sync(ctx context.Context, kioskID string) (*SyncResult, error) {
	m.SyncCalls++
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	if m.syncResult != nil {
		return m.syncResult, nil
	}
	return &SyncResult{}, nil
}

// SubmitVote implements Client
func (m *MockClient) SubmitVote(ctx context.Context, vote VoteSubmission) (*VoteReceipt, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.Submitted = append(m.Submitted, vote)
	if m.receipt != nil {
		return m.receipt, nil
	}
	return &VoteReceipt{ID: "mock-vote", ValidationStatus: "APPROVED"}, nil
}

// BaseURL implements Client
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

var _ Client = (*MockClient)(nil)
var _ Client = (*HTTPClient)(nil)
