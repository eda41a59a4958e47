// internal/services/ledger_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/admarket/admarket-backend/internal/config"
)

// Entry points of the on-chain AdMarket module.
const (
	EntryUploadVideo        = "upload_video"
	EntryCreateCampaign     = "create_campaign"
	EntryRecordWatchTime    = "record_watch_time"
	EntryWithdrawRewards    = "withdraw_rewards"
	EntryRegisterCreator    = "register_creator"
	EntryRegisterAdvertiser = "register_advertiser"
	EntryAddAttester        = "add_attester"
	ViewCreatorBalance      = "get_creator_balance"
)

var ErrTxFailed = errors.New("ledger transaction failed")

// LedgerViewer is the read-only slice of the ledger adapter contract.
type LedgerViewer interface {
	View(ctx context.Context, function string, args []interface{}) ([]json.RawMessage, error)
}

// LedgerService submits entry-function calls to the external ledger node and
// waits for finality before reporting a receipt as durable. The ledger is the
// source of truth for financial actions; the mirror store is only a read
// cache, so nothing here touches the database.
type LedgerService struct {
	cfg    config.LedgerConfig
	client *http.Client
}

// TxReceipt is what callers get back once a submission has been observed
// final. A receipt with Finalized=false is never returned on the success
// path.
type TxReceipt struct {
	Hash      string `json:"hash"`
	Sender    string `json:"sender"`
	Finalized bool   `json:"finalized"`
}

type submitRequest struct {
	Sender        string        `json:"sender"`
	Function      string        `json:"function"`
	TypeArguments []string      `json:"type_arguments"`
	Arguments     []interface{} `json:"arguments"`
}

type txStatus struct {
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Sender   string `json:"sender"`
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status"`
}

func NewLedgerService(cfg config.LedgerConfig) *LedgerService {
	return &LedgerService{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.SubmitTimeout) * time.Second,
		},
	}
}

// EntryPoint builds the fully qualified name of an AdMarket entry function,
// e.g. "0xabc::AdMarket::create_campaign".
func (s *LedgerService) EntryPoint(name string) string {
	return fmt.Sprintf("%s::AdMarket::%s", s.cfg.ModuleAddress, name)
}

// SubmitEntryFunction submits an entry-function call with positional
// primitive arguments and blocks until the node reports the transaction
// final. The adapter owns all wire encoding; callers pass plain ints and
// strings matching the entry point's parameters.
func (s *LedgerService) SubmitEntryFunction(ctx context.Context, function string, args []interface{}) (*TxReceipt, error) {
	if args == nil {
		args = []interface{}{}
	}

	body, err := json.Marshal(submitRequest{
		Sender:        s.cfg.SenderAddress,
		Function:      function,
		TypeArguments: []string{},
		Arguments:     args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	submitCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.SubmitTimeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(submitCtx, http.MethodPost,
		s.cfg.NodeURL+"/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ledger submission rejected: status %d: %s", resp.StatusCode, payload)
	}

	var pending txStatus
	if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
		return nil, fmt.Errorf("failed to decode submission response: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": function,
		"tx_hash":  pending.Hash,
	}).Info("Ledger transaction submitted")

	if err := s.waitForFinality(ctx, pending.Hash); err != nil {
		return nil, err
	}

	sender := pending.Sender
	if sender == "" {
		sender = s.cfg.SenderAddress
	}

	return &TxReceipt{
		Hash:      pending.Hash,
		Sender:    sender,
		Finalized: true,
	}, nil
}

// waitForFinality polls the node until the transaction is executed. A
// transaction that executed but aborted surfaces as ErrTxFailed with the VM
// status attached.
func (s *LedgerService) waitForFinality(ctx context.Context, hash string) error {
	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.FinalityTimeout)*time.Second)
	defer cancel()

	delay := time.Duration(s.cfg.FinalityPollDelay) * time.Millisecond
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	for {
		status, err := s.transactionByHash(waitCtx, hash)
		if err != nil {
			return err
		}

		if status != nil && status.Type != "pending_transaction" {
			if !status.Success {
				return fmt.Errorf("%w: %s (tx %s)", ErrTxFailed, status.VMStatus, hash)
			}
			logrus.WithField("tx_hash", hash).Info("Ledger transaction finalized")
			return nil
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("timed out waiting for finality of tx %s: %w", hash, waitCtx.Err())
		case <-time.After(delay):
		}
	}
}

// transactionByHash returns nil status while the node has not yet indexed
// the transaction (404).
func (s *LedgerService) transactionByHash(ctx context.Context, hash string) (*txStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.NodeURL+"/v1/transactions/by_hash/"+hash, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger status check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ledger status check: status %d: %s", resp.StatusCode, payload)
	}

	var status txStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode transaction status: %w", err)
	}

	return &status, nil
}

// View invokes a read-only view function and returns its raw result values.
func (s *LedgerService) View(ctx context.Context, function string, args []interface{}) ([]json.RawMessage, error) {
	if args == nil {
		args = []interface{}{}
	}

	body, err := json.Marshal(map[string]interface{}{
		"function":       function,
		"type_arguments": []string{},
		"arguments":      args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode view request: %w", err)
	}

	viewCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.SubmitTimeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(viewCtx, http.MethodPost,
		s.cfg.NodeURL+"/v1/view", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build view request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger view call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ledger view call: status %d: %s", resp.StatusCode, payload)
	}

	var values []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to decode view response: %w", err)
	}

	return values, nil
}

func (s *LedgerService) SenderAddress() string {
	return s.cfg.SenderAddress
}

func (s *LedgerService) ModuleAddress() string {
	return s.cfg.ModuleAddress
}
