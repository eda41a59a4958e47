// internal/services/accounting_service.go
package services

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/admarket/admarket-backend/internal/config"
	"github.com/admarket/admarket-backend/internal/models"
	"github.com/admarket/admarket-backend/internal/utils"
)

// Referential conditions callers branch on. These are results, not faults:
// a missing campaign on a read path is a valid zero-result.
var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrVideoNotFound    = errors.New("video not found")
	ErrVideoMismatch    = errors.New("campaign does not belong to the given video")
	ErrBudgetExhausted  = errors.New("campaign budget exhausted")
)

// AccountingService is the campaign accounting engine: it computes rewards
// from watch events, maintains the cached campaign counters, and answers
// balance queries by aggregating the ad_views fact log.
type AccountingService struct {
	db  *gorm.DB
	cfg config.RewardsConfig
}

func NewAccountingService(db *gorm.DB, cfg config.RewardsConfig) *AccountingService {
	return &AccountingService{
		db:  db,
		cfg: cfg,
	}
}

type RecordCampaignRequest struct {
	VideoID         uint   `json:"video_id" validate:"required"`
	AdCID           string `json:"ad_cid" validate:"required"`
	AdTitle         string `json:"ad_title"`
	Budget          int64  `json:"budget" validate:"gte=0"`
	RewardPerSecond int64  `json:"reward_per_second" validate:"gte=0"`
	Advertiser      string `json:"advertiser"`
	TxHash          string `json:"tx_hash"`
}

// RecordCampaign inserts one campaign row. There is no uniqueness check per
// video: a newer campaign supersedes older ones on the read side
// (latest-wins). Video existence is only verified when the strict-referential
// flag is on.
func (s *AccountingService) RecordCampaign(req *RecordCampaignRequest) (*models.Campaign, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if s.cfg.StrictReferential {
		var count int64
		if err := s.db.Model(&models.Video{}).Where("id = ?", req.VideoID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check video: %w", err)
		}
		if count == 0 {
			return nil, ErrVideoNotFound
		}
	}

	campaign := &models.Campaign{
		VideoID:         req.VideoID,
		AdCID:           req.AdCID,
		AdTitle:         req.AdTitle,
		Budget:          req.Budget,
		RewardPerSecond: req.RewardPerSecond,
		Advertiser:      req.Advertiser,
		TxHash:          req.TxHash,
	}

	if err := s.db.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return campaign, nil
}

// TrackView records one watch event: it derives the reward from the
// campaign's rate, appends an AdView fact row and bumps the campaign's
// cached counters. The fact insert happens before the counter update so a
// partial failure can only leave the counters behind the log, never ahead
// of it. The counter bump is SQL arithmetic so concurrent viewers on the
// same campaign serialize in the store.
func (s *AccountingService) TrackView(campaignID, videoID uint, watchDuration int64, viewer string) (int64, error) {
	if watchDuration < 0 {
		return 0, fmt.Errorf("watch duration must be non-negative, got %d", watchDuration)
	}
	if viewer == "" {
		viewer = "anonymous"
	}

	var reward int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var campaign models.Campaign
		if err := tx.First(&campaign, campaignID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCampaignNotFound
			}
			return fmt.Errorf("failed to load campaign: %w", err)
		}

		if campaign.VideoID != videoID {
			return ErrVideoMismatch
		}

		if campaign.RewardPerSecond > 0 && watchDuration > math.MaxInt64/campaign.RewardPerSecond {
			return fmt.Errorf("reward computation overflows for duration %d at rate %d",
				watchDuration, campaign.RewardPerSecond)
		}
		reward = watchDuration * campaign.RewardPerSecond

		if s.cfg.EnforceBudget {
			accrued, err := s.campaignAccrued(tx, campaign.ID)
			if err != nil {
				return err
			}
			if accrued+reward > campaign.Budget {
				return ErrBudgetExhausted
			}
		}

		view := &models.AdView{
			CampaignID:    campaign.ID,
			VideoID:       campaign.VideoID,
			Viewer:        viewer,
			WatchDuration: watchDuration,
			RewardEarned:  reward,
		}
		if err := tx.Create(view).Error; err != nil {
			return fmt.Errorf("failed to record ad view: %w", err)
		}

		result := tx.Model(&models.Campaign{}).
			Where("id = ?", campaign.ID).
			Updates(map[string]interface{}{
				"views":            gorm.Expr("views + 1"),
				"total_watch_time": gorm.Expr("total_watch_time + ?", watchDuration),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update campaign counters: %w", result.Error)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return reward, nil
}

// GetCampaignForVideo resolves the live campaign for a video: the most
// recently created row, with the higher id breaking same-timestamp ties.
// (nil, nil) means no campaign is attached, which is a successful zero
// result distinct from a store failure.
func (s *AccountingService) GetCampaignForVideo(videoID uint) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.db.Where("video_id = ?", videoID).
		Order("created_at DESC, id DESC").
		First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	return &campaign, nil
}

// Balance is a creator's reward position. Units is the aggregated raw
// count; Display is the fixed-point token rendering of the same number.
type Balance struct {
	Units     int64  `json:"units"`
	Display   string `json:"display"`
	Formatted string `json:"formatted"`
}

// GetCreatorBalance aggregates reward_earned over the fact log joined
// through campaigns to the creator's videos. The balance is never stored;
// it is recomputed on every call so it cannot drift from the log.
func (s *AccountingService) GetCreatorBalance(creator string) (*Balance, error) {
	var row struct {
		Total int64
	}
	err := s.db.Table("ad_views").
		Select("COALESCE(SUM(ad_views.reward_earned), 0) AS total").
		Joins("JOIN campaigns ON ad_views.campaign_id = campaigns.id").
		Joins("JOIN videos ON campaigns.video_id = videos.id").
		Where("videos.creator = ?", creator).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate creator balance: %w", err)
	}

	display := s.DisplayValue(row.Total)
	return &Balance{
		Units:     row.Total,
		Display:   display,
		Formatted: fmt.Sprintf("%s APT (%d units tracked)", display, row.Total),
	}, nil
}

// DisplayValue converts raw reward units to the display token using the
// configured fixed-point ratio, rendered with 5 decimal places.
func (s *AccountingService) DisplayValue(units int64) string {
	return decimal.NewFromInt(units).
		Div(decimal.NewFromInt(s.cfg.UnitsPerToken)).
		StringFixed(5)
}

// RecountCampaign rebuilds a campaign's cached counters from the ad_views
// fact log. Recovery path for a crash that landed between the fact insert
// and the counter bump; the log is authoritative, the counters are not.
func (s *AccountingService) RecountCampaign(campaignID uint) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&campaign, campaignID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCampaignNotFound
			}
			return fmt.Errorf("failed to load campaign: %w", err)
		}

		var agg struct {
			Views     int64
			WatchTime int64
		}
		err := tx.Table("ad_views").
			Select("COUNT(*) AS views, COALESCE(SUM(watch_duration), 0) AS watch_time").
			Where("campaign_id = ?", campaignID).
			Scan(&agg).Error
		if err != nil {
			return fmt.Errorf("failed to aggregate ad views: %w", err)
		}

		result := tx.Model(&models.Campaign{}).
			Where("id = ?", campaignID).
			Updates(map[string]interface{}{
				"views":            agg.Views,
				"total_watch_time": agg.WatchTime,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to rewrite campaign counters: %w", result.Error)
		}

		campaign.Views = agg.Views
		campaign.TotalWatchTime = agg.WatchTime
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &campaign, nil
}

func (s *AccountingService) GetCampaign(campaignID uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.db.First(&campaign, campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return &campaign, nil
}

func (s *AccountingService) ListCampaigns(params utils.PaginationParams) ([]models.Campaign, int64, error) {
	var campaigns []models.Campaign
	var total int64

	query := s.db.Model(&models.Campaign{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "views", "total_watch_time", "budget"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&campaigns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, total, nil
}

func (s *AccountingService) ListViewsByCampaign(campaignID uint) ([]models.AdView, error) {
	var views []models.AdView
	err := s.db.Where("campaign_id = ?", campaignID).
		Order("viewed_at DESC").
		Find(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ad views: %w", err)
	}
	return views, nil
}

// PlatformStats is the public dashboard projection.
type PlatformStats struct {
	TotalVideos   int64          `json:"totalVideos"`
	TotalCreators int64          `json:"totalCreators"`
	RecentVideos  []models.Video `json:"recentVideos"`
}

func (s *AccountingService) GetPlatformStats(recentLimit int) (*PlatformStats, error) {
	stats := &PlatformStats{}

	if err := s.db.Model(&models.Video{}).Count(&stats.TotalVideos).Error; err != nil {
		return nil, fmt.Errorf("failed to count videos: %w", err)
	}

	if err := s.db.Model(&models.Video{}).Distinct("creator").Count(&stats.TotalCreators).Error; err != nil {
		return nil, fmt.Errorf("failed to count creators: %w", err)
	}

	err := s.db.Order("created_at DESC, id DESC").
		Limit(recentLimit).
		Find(&stats.RecentVideos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent videos: %w", err)
	}

	return stats, nil
}

func (s *AccountingService) campaignAccrued(tx *gorm.DB, campaignID uint) (int64, error) {
	var row struct {
		Total int64
	}
	err := tx.Table("ad_views").
		Select("COALESCE(SUM(reward_earned), 0) AS total").
		Where("campaign_id = ?", campaignID).
		Scan(&row).Error
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate campaign spend: %w", err)
	}
	return row.Total, nil
}
