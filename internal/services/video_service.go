// internal/services/video_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/admarket/admarket-backend/internal/models"
	"github.com/admarket/admarket-backend/internal/utils"
)

var ErrVideoMissing = errors.New("video not found")

// ContentStore is the adapter contract the upload pipeline depends on.
type ContentStore interface {
	Store(ctx context.Context, r io.Reader, filename string) (*StoredObject, error)
	GatewayURL(contentID string) string
	MaxFileSize() int64
}

// Ledger is the adapter contract for entry-function submission.
type Ledger interface {
	SubmitEntryFunction(ctx context.Context, function string, args []interface{}) (*TxReceipt, error)
	EntryPoint(name string) string
	SenderAddress() string
}

// VideoService runs the creator upload pipeline and the video read paths.
// Upload order matters: asset first, ledger second, mirror last. A ledger
// failure aborts before the mirror write; the already-pinned asset is an
// accepted orphan, not silently cleaned up.
type VideoService struct {
	db      *gorm.DB
	content ContentStore
	ledger  Ledger
}

func NewVideoService(db *gorm.DB, content ContentStore, ledger Ledger) *VideoService {
	return &VideoService{
		db:      db,
		content: content,
		ledger:  ledger,
	}
}

func (s *VideoService) Upload(ctx context.Context, r io.Reader, filename, title, description string) (*models.Video, *TxReceipt, error) {
	stored, err := s.content.Store(ctx, r, filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store video asset: %w", err)
	}

	receipt, err := s.ledger.SubmitEntryFunction(ctx,
		s.ledger.EntryPoint(EntryUploadVideo),
		[]interface{}{stored.CID, title, description})
	if err != nil {
		return nil, nil, fmt.Errorf("ledger upload failed: %w", err)
	}

	video := &models.Video{
		CID:         stored.CID,
		Title:       title,
		Description: description,
		Creator:     receipt.Sender,
		TxHash:      receipt.Hash,
	}
	if err := s.db.Create(video).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to mirror video record: %w", err)
	}

	s.enrich(video)
	return video, receipt, nil
}

func (s *VideoService) List(params utils.PaginationParams) ([]models.Video, int64, error) {
	var videos []models.Video
	var total int64

	query := s.db.Model(&models.Video{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count videos: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "title"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&videos).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list videos: %w", err)
	}

	for i := range videos {
		s.enrich(&videos[i])
	}
	return videos, total, nil
}

func (s *VideoService) Get(id uint) (*models.Video, error) {
	var video models.Video
	if err := s.db.First(&video, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoMissing
		}
		return nil, fmt.Errorf("failed to load video: %w", err)
	}

	s.enrich(&video)
	return &video, nil
}

func (s *VideoService) ListByCreator(creator string) ([]models.Video, error) {
	var videos []models.Video
	err := s.db.Where("creator = ?", creator).
		Order("created_at DESC, id DESC").
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list creator videos: %w", err)
	}

	for i := range videos {
		s.enrich(&videos[i])
	}
	return videos, nil
}

// GatewayURL exposes the content store's URL builder to callers shaping
// responses for other asset kinds (e.g. ad creatives).
func (s *VideoService) GatewayURL(contentID string) string {
	return s.content.GatewayURL(contentID)
}

// MaxUploadSize is the store's per-asset size limit in bytes.
func (s *VideoService) MaxUploadSize() int64 {
	return s.content.MaxFileSize()
}

func (s *VideoService) enrich(v *models.Video) {
	if v.CID != "" {
		v.URL = s.content.GatewayURL(v.CID)
	}
}
