// internal/models/video.go
package models

// Video mirrors a creator upload recorded on the ledger. Rows are immutable
// once written; the CID points at the asset in the content store and TxHash
// at the upload transaction on chain.
type Video struct {
	BaseModel
	CID         string `json:"cid" gorm:"column:cid;size:255;not null"`
	Title       string `json:"title" gorm:"size:255"`
	Description string `json:"description" gorm:"type:text"`
	Creator     string `json:"creator" gorm:"size:80;not null;index"`
	TxHash      string `json:"tx_hash" gorm:"size:80"`

	// URL is the gateway retrieval URL, derived from CID at read time.
	URL string `json:"url,omitempty" gorm:"-"`
}
