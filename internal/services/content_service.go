// internal/services/content_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"

	"github.com/admarket/admarket-backend/internal/config"
)

// ContentService uploads binary assets to the content-addressed store (an
// IPFS node) and hands back opaque content identifiers. Retries are safe:
// re-adding the same bytes typically yields the same CID, but callers must
// not rely on dedup.
type ContentService struct {
	cfg    config.ContentStoreConfig
	client *http.Client
}

// StoredObject is the adapter's receipt for one stored asset.
type StoredObject struct {
	CID  string `json:"cid"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// addResponse matches the node's /api/v0/add reply.
type addResponse struct {
	Hash string `json:"Hash"`
	Name string `json:"Name"`
	Size string `json:"Size"`
}

func NewContentService(cfg config.ContentStoreConfig) *ContentService {
	return &ContentService{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.UploadTimeout) * time.Second,
		},
	}
}

// Store streams the asset to the node's add endpoint with pinning enabled
// and validates the returned content identifier before handing it out.
func (s *ContentService) Store(ctx context.Context, r io.Reader, filename string) (*StoredObject, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	uploadCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.UploadTimeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(uploadCtx, http.MethodPost,
		s.cfg.APIURL+"/api/v0/add?pin=true", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content store upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("content store upload: status %d: %s", resp.StatusCode, payload)
	}

	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return nil, fmt.Errorf("failed to decode content store response: %w", err)
	}

	parsed, err := cid.Decode(added.Hash)
	if err != nil {
		return nil, fmt.Errorf("content store returned invalid CID %q: %w", added.Hash, err)
	}

	var size int64
	fmt.Sscanf(added.Size, "%d", &size)

	logrus.WithFields(logrus.Fields{
		"cid":  parsed.String(),
		"name": added.Name,
		"size": size,
	}).Info("Asset stored")

	return &StoredObject{
		CID:  parsed.String(),
		Name: added.Name,
		Size: size,
	}, nil
}

// GatewayURL reconstructs the public retrieval URL for a content identifier.
func (s *ContentService) GatewayURL(contentID string) string {
	return fmt.Sprintf("%s/ipfs/%s", s.cfg.GatewayURL, contentID)
}

func (s *ContentService) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}
