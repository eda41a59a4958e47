// internal/services/ledger_service_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admarket/admarket-backend/internal/config"
)

func testLedgerConfig(nodeURL string) config.LedgerConfig {
	return config.LedgerConfig{
		NodeURL:           nodeURL,
		ModuleAddress:     "0xabc",
		SenderAddress:     "0xsender",
		SubmitTimeout:     5,
		FinalityTimeout:   5,
		FinalityPollDelay: 10,
	}
}

func TestEntryPointQualification(t *testing.T) {
	svc := NewLedgerService(testLedgerConfig("http://unused"))
	assert.Equal(t, "0xabc::AdMarket::create_campaign", svc.EntryPoint(EntryCreateCampaign))
}

func TestSubmitEntryFunctionWaitsForFinality(t *testing.T) {
	var polls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/transactions":
			var req struct {
				Function  string        `json:"function"`
				Arguments []interface{} `json:"arguments"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "0xabc::AdMarket::create_campaign", req.Function)
			assert.Len(t, req.Arguments, 3)

			json.NewEncoder(w).Encode(map[string]interface{}{
				"type":   "pending_transaction",
				"hash":   "0xhash1",
				"sender": "0xsender",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/transactions/by_hash/0xhash1":
			// Pending on the first poll, executed afterwards.
			if atomic.AddInt32(&polls, 1) == 1 {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"type": "pending_transaction",
					"hash": "0xhash1",
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"type":    "user_transaction",
				"hash":    "0xhash1",
				"success": true,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	svc := NewLedgerService(testLedgerConfig(server.URL))
	receipt, err := svc.SubmitEntryFunction(context.Background(),
		svc.EntryPoint(EntryCreateCampaign), []interface{}{1, 1000, 10})
	require.NoError(t, err)

	assert.Equal(t, "0xhash1", receipt.Hash)
	assert.Equal(t, "0xsender", receipt.Sender)
	assert.True(t, receipt.Finalized)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(2))
}

func TestSubmitEntryFunctionAbortedTx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"type": "pending_transaction",
				"hash": "0xhash2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"type":      "user_transaction",
			"hash":      "0xhash2",
			"success":   false,
			"vm_status": "ABORTED",
		})
	}))
	defer server.Close()

	svc := NewLedgerService(testLedgerConfig(server.URL))
	_, err := svc.SubmitEntryFunction(context.Background(),
		svc.EntryPoint(EntryWithdrawRewards), nil)
	assert.ErrorIs(t, err, ErrTxFailed)
}

func TestSubmitEntryFunctionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid payload"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	svc := NewLedgerService(testLedgerConfig(server.URL))
	_, err := svc.SubmitEntryFunction(context.Background(),
		svc.EntryPoint(EntryUploadVideo), []interface{}{"cid", "t", "d"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestViewFunction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/view", r.URL.Path)
		json.NewEncoder(w).Encode([]interface{}{"12345"})
	}))
	defer server.Close()

	svc := NewLedgerService(testLedgerConfig(server.URL))
	values, err := svc.View(context.Background(),
		svc.EntryPoint(ViewCreatorBalance), []interface{}{"0xcreator"})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.JSONEq(t, `"12345"`, string(values[0]))
}
