package kiosk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/pkg/kiosk"
)

// fakeServer stands in for a pollwave server during client tests
func fakeServer(t *testing.T, configVersion int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/iot/devices", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(kiosk.Device{
			ID:         "dev-1",
			KioskID:    req["kiosk_id"],
			Location:   req["location"],
			DeviceType: "KIOSK",
			Active:     true,
		})
	})
	mux.HandleFunc("/api/iot/devices/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sync") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(kiosk.SyncResult{
			Device: kiosk.Device{ID: "dev-1", KioskID: "kiosk-1"},
			Config: kiosk.Config{
				PollIntervalMs: 5000,
				Enabled:        true,
				ConfigVersion:  configVersion,
			},
			ActivePolls: []kiosk.Poll{{ID: "p1", Title: "Lunch", Status: "ACTIVE"}},
		})
	})
	mux.HandleFunc("/api/iot/votes", func(w http.ResponseWriter, r *http.Request) {
		var vote kiosk.VoteSubmission
		if err := json.NewDecoder(r.Body).Decode(&vote); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if vote.DeviceID == "" {
			http.Error(w, `{"code":"BAD_REQUEST","error":"device_id is required"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(kiosk.VoteReceipt{
			ID:               "vote-1",
			Confidence:       0.5,
			ValidationStatus: "APPROVED",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_Register(t *testing.T) {
	server := fakeServer(t, 1)
	client := kiosk.NewHTTPClient(server.URL, logger.New())

	device, err := client.Register(context.Background(), "kiosk-1", "Lobby", "KIOSK")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if device.ID != "dev-1" || device.KioskID != "kiosk-1" {
		t.Errorf("unexpected device: %+v", device)
	}
}

func TestHTTPClient_SyncCachesConfigVersion(t *testing.T) {
	server := fakeServer(t, 3)
	client := kiosk.NewHTTPClient(server.URL, logger.New())

	if client.ConfigVersion() != 0 {
		t.Errorf("expected version 0 before first sync, got %d", client.ConfigVersion())
	}

	result, err := client.Sync(context.Background(), "kiosk-1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.Config.ConfigVersion != 3 {
		t.Errorf("unexpected config version: %d", result.Config.ConfigVersion)
	}
	if client.ConfigVersion() != 3 {
		t.Errorf("client should cache the seen version, got %d", client.ConfigVersion())
	}
	if len(result.ActivePolls) != 1 || result.ActivePolls[0].ID != "p1" {
		t.Errorf("unexpected active polls: %+v", result.ActivePolls)
	}
}

func TestHTTPClient_SubmitVote(t *testing.T) {
	server := fakeServer(t, 1)
	client := kiosk.NewHTTPClient(server.URL, logger.New())

	receipt, err := client.SubmitVote(context.Background(), kiosk.VoteSubmission{
		DeviceID:     "dev-1",
		PollID:       "p1",
		OptionID:     "o1",
		VotingTimeMs: 15000,
	})
	if err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if receipt.ID != "vote-1" || receipt.ValidationStatus != "APPROVED" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
}

func TestHTTPClient_ErrorStatus(t *testing.T) {
	server := fakeServer(t, 1)
	client := kiosk.NewHTTPClient(server.URL, logger.New())

	_, err := client.SubmitVote(context.Background(), kiosk.VoteSubmission{PollID: "p1"})
	if err == nil {
		t.Fatal("expected an error for a rejected submission")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("error should surface the status: %v", err)
	}
}

func TestHTTPClient_ServerUnreachable(t *testing.T) {
	client := kiosk.NewHTTPClient("http://127.0.0.1:1", logger.New())

	if _, err := client.Sync(context.Background(), "kiosk-1"); err == nil {
		t.Fatal("expected an error when the server is unreachable")
	}
}

func TestHTTPClient_BaseURL(t *testing.T) {
	client := kiosk.NewHTTPClient("http://example.com", logger.New())
	if client.BaseURL() != "http://example.com" {
		t.Errorf("unexpected base url: %s", client.BaseURL())
	}
}

func TestMockClient_Defaults(t *testing.T) {
	mock := kiosk.NewMockClient()

	device, err := mock.Register(context.Background(), "kiosk-1", "Lobby", "KIOSK")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if device.KioskID != "kiosk-1" || !device.Active {
		t.Errorf("unexpected device: %+v", device)
	}

	if _, err := mock.Sync(context.Background(), "kiosk-1"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if mock.SyncCalls != 1 {
		t.Errorf("expected 1 recorded sync, got %d", mock.SyncCalls)
	}

	receipt, err := mock.SubmitVote(context.Background(), kiosk.VoteSubmission{PollID: "p1"})
	if err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if receipt.ValidationStatus != "APPROVED" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if len(mock.Submitted) != 1 || mock.Submitted[0].PollID != "p1" {
		t.Errorf("submission should be recorded: %+v", mock.Submitted)
	}
}

func TestMockClient_Options(t *testing.T) {
	boom := errors.New("boom")
	mock := kiosk.NewMockClient(
		kiosk.WithSyncResult(&kiosk.SyncResult{Config: kiosk.Config{ConfigVersion: 9}}),
		kiosk.WithSubmitError(boom),
	)

	result, err := mock.Sync(context.Background(), "kiosk-1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.Config.ConfigVersion != 9 {
		t.Errorf("expected the configured sync result, got %+v", result)
	}

	if _, err := mock.SubmitVote(context.Background(), kiosk.VoteSubmission{}); !errors.Is(err, boom) {
		t.Errorf("expected the configured error, got %v", err)
	}
}
