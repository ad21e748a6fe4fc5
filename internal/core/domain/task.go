package domain

import "time"

// TaskType identifies the kind of background work a task represents.
type TaskType string

const (
	// TaskTypeExtractMetadata asks a worker to run LLM metadata
	// extraction for an indexed contract.
	TaskTypeExtractMetadata TaskType = "extract_metadata"
)

// TaskStatus tracks a task through the queue.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskMaxRetries caps how many times a failed task is re-enqueued
// before it is abandoned.
const TaskMaxRetries = 3

// Task is one unit of background work.
type Task struct {
	ID           string     `json:"id"`
	Type         TaskType   `json:"type"`
	ContractName string     `json:"contract_name"`
	UploadID     string     `json:"upload_id,omitempty"`
	Retries      int        `json:"retries"`
	Status       TaskStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UploadStatus is the processing stage of an uploaded contract.
type UploadStatus string

const (
	UploadStatusPending            UploadStatus = "pending"
	UploadStatusParsing            UploadStatus = "parsing"
	UploadStatusVectorizing        UploadStatus = "vectorizing"
	UploadStatusMetadataExtracting UploadStatus = "metadata_extracting"
	UploadStatusCompleted          UploadStatus = "completed"
	UploadStatusFailed             UploadStatus = "failed"
)

// Display returns the user-facing label for a status.
func (s UploadStatus) Display() string {
	switch s {
	case UploadStatusPending:
		return "待解析"
	case UploadStatusParsing:
		return "正在转化为文本"
	case UploadStatusVectorizing:
		return "正在向量化"
	case UploadStatusMetadataExtracting:
		return "正在提取元数据"
	case UploadStatusCompleted:
		return "解析成功"
	case UploadStatusFailed:
		return "解析失败"
	}
	return string(s)
}

// UploadRecord tracks one uploaded contract through its lifecycle.
type UploadRecord struct {
	UploadID     string       `json:"upload_id"`
	ContractName string       `json:"contract_name"`
	FileName     string       `json:"file_name"`
	Status       UploadStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	PageCount    int          `json:"page_count,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
