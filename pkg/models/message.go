package models

import "time"

// Role is the speaker of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single conversational turn held in short-term memory.
// Messages are not modified after they are appended.
type Message struct {
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  MessageMetadata `json:"metadata"`
}

// MessageMetadata is attached to a message when it enters memory.
type MessageMetadata struct {
	TaskID         string     `json:"taskId,omitempty"`
	TokenUsage     int        `json:"tokenUsage"`
	Importance     float64    `json:"importance"`
	ExecutionType  ResultType `json:"executionType,omitempty"`
	SubTaskCount   int        `json:"subTaskCount,omitempty"`
	ContextSummary string     `json:"contextAnalysis,omitempty"`
}

// MemoryStats are the process-scoped counters kept by the memory manager.
type MemoryStats struct {
	TotalMessages       int       `json:"totalMessages"`
	CompressionCount    int       `json:"compressionsCount"`
	LastCompressionTime time.Time `json:"lastCompressionTime"`
	TokenUsage          int       `json:"tokenUsage"`
}

// MemoryUsage is the size of each memory tier.
type MemoryUsage struct {
	ShortTerm  int `json:"shortTerm"`
	MediumTerm int `json:"mediumTerm"`
	LongTerm   int `json:"longTerm"`
	Total      int `json:"total"`
}
