package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/karthikrv/districtwatch/app/monitor"
)

func TestClient_SendMessage(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendMessage" {
			t.Errorf("Expected /sendMessage path, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "12345")

	if err := client.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if received["chat_id"] != "12345" {
		t.Errorf("Expected chat_id '12345', got %v", received["chat_id"])
	}
	if received["text"] != "hello" {
		t.Errorf("Expected text 'hello', got %v", received["text"])
	}
	if received["parse_mode"] != "Markdown" {
		t.Errorf("Expected Markdown parse mode, got %v", received["parse_mode"])
	}
}

func TestClient_SendMessage_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "12345")

	if err := client.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("Expected retries to recover, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestClient_SendMessage_NoRetryOnClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "12345")

	if err := client.SendMessage(context.Background(), "hello"); err == nil {
		t.Fatal("Expected error on HTTP 400")
	}
	if attempts != 1 {
		t.Errorf("Expected a 400 not to be retried, got %d attempts", attempts)
	}
}

func TestClient_SendMessage_GivesUpAfterRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "12345")

	if err := client.SendMessage(context.Background(), "hello"); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if attempts != maxSendRetries+1 {
		t.Errorf("Expected %d attempts, got %d", maxSendRetries+1, attempts)
	}
}

func TestClient_DisabledIsNoOp(t *testing.T) {
	client := NewClient(http.DefaultClient, "", "")

	if client.Enabled() {
		t.Error("Expected client without token to be disabled")
	}
	if err := client.SendMessage(context.Background(), "hello"); err != nil {
		t.Errorf("Expected disabled send to be a silent no-op, got %v", err)
	}

	updates, err := client.GetUpdates(context.Background(), 0, 0)
	if err != nil {
		t.Errorf("Expected disabled poll to be a silent no-op, got %v", err)
	}
	if updates != nil {
		t.Errorf("Expected no updates, got %v", updates)
	}
}

func TestClient_SendBookingAlert_EmptyTheatres(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no request for an alert with no theatres")
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "12345")

	if err := client.SendBookingAlert(context.Background(), monitor.BookingAlert{}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestClient_GetUpdates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getUpdates" {
			t.Errorf("Expected /getUpdates path, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":"/list","chat":{"id":12345}}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "12345")

	updates, err := client.GetUpdates(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("Expected 1 update, got %d", len(updates))
	}
	if updates[0].UpdateID != 7 {
		t.Errorf("Expected update id 7, got %d", updates[0].UpdateID)
	}
	if updates[0].Message.Text != "/list" {
		t.Errorf("Expected message text '/list', got %q", updates[0].Message.Text)
	}
}

func TestClient_GetUpdates_NotOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "12345")

	if _, err := client.GetUpdates(context.Background(), 0, 0); err == nil {
		t.Error("Expected error when API reports not ok")
	}
}
