package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/crm-engine/internal/pkg/httpretry"
)

// Simulated delivery vendor for local testing. Accepts personalized
// messages, flips a weighted coin and reports the outcome back to the CRM
// API as a delivery receipt, the way the real vendor's webhook would.

const successRate = 0.9

type sendRequest struct {
	CustomerID string `json:"customerId"`
	Message    string `json:"message"`
	LogID      string `json:"logId,omitempty"`
}

type receipt struct {
	LogID  string `json:"logId"`
	Status string `json:"status"`
}

func main() {
	log.Println("Starting vendor stub (simulated delivery only)...")

	callbackURL := os.Getenv("CRM_RECEIPT_URL")
	if callbackURL == "" {
		callbackURL = "http://localhost:8080/api/delivery-receipt"
	}

	client := httpretry.NewRetryClient(nil, 2)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"vendor-stub"}`))
	})

	mux.HandleFunc("POST /send", func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		status := "SENT"
		if rand.Float64() > successRate {
			status = "FAILED"
		}
		log.Printf("Vendor stub: customer=%s status=%s", req.CustomerID, status)

		// Report the outcome back out-of-band, like a production webhook.
		if req.LogID != "" {
			go postReceipt(client, callbackURL, receipt{LogID: req.LogID, Status: status})
		}

		w.Header().Set("Content-Type", "application/json")
		if status == "FAILED" {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"status": status})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	addr := os.Getenv("VENDOR_STUB_ADDR")
	if addr == "" {
		addr = ":9091"
	}

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("Vendor stub listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Vendor stub failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down vendor stub...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}

func postReceipt(client *httpretry.RetryClient, url string, rec receipt) {
	body, err := json.Marshal(rec)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("Vendor stub: receipt callback failed: %v", err)
		return
	}
	resp.Body.Close()
}
