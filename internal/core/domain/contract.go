package domain

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// Page is one indexed unit of contract text plus its embedding.
// Pages are numbered from 1; page 1 additionally carries the
// document-level metadata record for the whole contract.
type Page struct {
	ContractName string            `json:"contract_name"`
	PageID       int               `json:"page_id"`
	Text         string            `json:"text"`
	TextVector   []float32         `json:"text_vector,omitempty"`
	Metadata     *ContractMetadata `json:"document_metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at,omitempty"`
}

// ContractMetadata holds the structured fields extracted from a contract.
// It is stored once per contract, on the page with PageID == 1; all other
// pages carry nil. Every field is optional until extraction has run.
type ContractMetadata struct {
	PartyA             string    `json:"party_a,omitempty"`
	PartyB             string    `json:"party_b,omitempty"`
	ContractType       string    `json:"contract_type,omitempty"`
	ContractAmount     *float64  `json:"contract_amount,omitempty"`
	SigningDate        string    `json:"signing_date,omitempty"` // YYYY-MM-DD
	ProjectDescription string    `json:"project_description,omitempty"`
	Positions          string    `json:"positions,omitempty"`
	PersonnelList      string    `json:"personnel_list,omitempty"`
	ExtractedAt        time.Time `json:"extracted_at,omitempty"`

	// MetadataVector is the embedding of the concatenated non-empty
	// fields above. It never appears in API responses.
	MetadataVector []float32 `json:"-"`
}

// HasContent reports whether at least one key field has been populated,
// which is the condition for a contract counting as "extracted".
func (m *ContractMetadata) HasContent() bool {
	if m == nil {
		return false
	}
	if m.PartyA != "" || m.PartyB != "" || m.ContractType != "" {
		return true
	}
	if m.ContractAmount != nil {
		return true
	}
	return m.ProjectDescription != "" || m.Positions != "" || m.PersonnelList != ""
}

// EmbeddingText concatenates the non-empty metadata fields in importance
// order into the text the metadata vector is generated from. The labels
// match the indexed contract language so the vector stays comparable with
// page embeddings.
func (m *ContractMetadata) EmbeddingText() string {
	if m == nil {
		return ""
	}
	var parts []string
	if m.PartyA != "" {
		parts = append(parts, "甲方："+m.PartyA)
	}
	if m.PartyB != "" {
		parts = append(parts, "乙方："+m.PartyB)
	}
	if m.ContractType != "" {
		parts = append(parts, "合同方向："+m.ContractType)
	}
	if m.ContractAmount != nil {
		parts = append(parts, "合同金额："+strconv.FormatFloat(*m.ContractAmount, 'f', -1, 64)+"元")
	}
	if m.ProjectDescription != "" {
		parts = append(parts, "项目描述："+m.ProjectDescription)
	}
	if m.Positions != "" {
		parts = append(parts, "岗位信息："+m.Positions)
	}
	if m.PersonnelList != "" {
		parts = append(parts, "人员清单："+m.PersonnelList)
	}
	return strings.Join(parts, " ")
}

// MetadataStatus describes whether extraction has produced usable fields.
type MetadataStatus string

const (
	MetadataStatusPending   MetadataStatus = "pending"
	MetadataStatusExtracted MetadataStatus = "extracted"
	MetadataStatusNotFound  MetadataStatus = "not_extracted"
)

// Status maps a metadata record to its extraction status.
func (m *ContractMetadata) Status() MetadataStatus {
	if m.HasContent() {
		return MetadataStatusExtracted
	}
	return MetadataStatusNotFound
}

// ContractSummary is one row of the contract listing.
type ContractSummary struct {
	ContractName   string         `json:"contract_name"`
	PageCount      int            `json:"page_count"`
	UploadTime     time.Time      `json:"upload_time"`
	HasMetadata    bool           `json:"has_metadata"`
	MetadataStatus MetadataStatus `json:"metadata_status"`
}

// PageDetail is one page of a contract detail response.
type PageDetail struct {
	PageID    int    `json:"page_id"`
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
}

// ContractDetail is the full view of an indexed contract.
type ContractDetail struct {
	ContractName   string            `json:"contract_name"`
	TotalPages     int               `json:"total_pages"`
	TotalChars     int               `json:"total_chars"`
	Pages          []PageDetail      `json:"pages"`
	Metadata       *ContractMetadata `json:"document_metadata,omitempty"`
	HasMetadata    bool              `json:"has_metadata"`
	MetadataStatus MetadataStatus    `json:"metadata_status"`
	UploadTime     time.Time         `json:"upload_time,omitempty"`
}

// BackendInfo reports search backend cluster state for status endpoints.
type BackendInfo struct {
	ClusterName   string `json:"cluster_name"`
	Status        string `json:"status"`
	NumberOfNodes int    `json:"number_of_nodes"`
	ActiveShards  int    `json:"active_shards"`
	IndexName     string `json:"index_name"`
}

// ContractNameFromFile normalises an uploaded file name to the contract
// identity: base name with the extension stripped.
func ContractNameFromFile(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	return strings.TrimSuffix(name, path.Ext(name))
}
