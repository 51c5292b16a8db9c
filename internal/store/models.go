package store

import "time"

// Bucket classifies a Contact for surfacing decisions (spec §3, GLOSSARY).
type Bucket string

const (
	BucketApproved   Bucket = "approved"
	BucketFeed       Bucket = "feed"
	BucketPaperTrail Bucket = "paper_trail"
	BucketQuarantine Bucket = "quarantine"
	BucketBlocked    Bucket = "blocked"
	BucketUnsorted   Bucket = "" // null in spec terms
)

// Contact is a known email identity (spec §3).
type Contact struct {
	ID                uint   `gorm:"primaryKey"`
	Email             string `gorm:"uniqueIndex;not null"`
	Name              string
	IsMe              bool `gorm:"not null;default:false"`
	IsDefaultIdentity bool `gorm:"not null;default:false"`
	Bucket            Bucket
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

// MessageContactRole is the role of a Contact within a Message's address
// lists.
type MessageContactRole string

const (
	RoleFrom MessageContactRole = "from"
	RoleTo   MessageContactRole = "to"
	RoleCC   MessageContactRole = "cc"
	RoleBCC  MessageContactRole = "bcc"
)

// ThreadContactRole distinguishes a participant's role across a Thread's
// messages (spec §3 — "the junction records the union").
type ThreadContactRole string

const (
	ThreadRoleSender    ThreadContactRole = "sender"
	ThreadRoleRecipient ThreadContactRole = "recipient"
)

// Thread groups Messages by header-reference or, failing that, normalized
// subject (spec §3, GLOSSARY).
type Thread struct {
	ID           uint `gorm:"primaryKey"`
	Subject      string
	CreatorID    uint      `gorm:"not null"`
	Creator      Contact   `gorm:"foreignKey:CreatorID"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	ReplyLaterAt *time.Time
	SetAsideAt   *time.Time
	TrashedAt    *time.Time
	FolderID     *uint
}

// MessageStatus is the lifecycle state of a Message (spec §3).
type MessageStatus string

const (
	StatusReceived MessageStatus = "received"
	StatusDraft    MessageStatus = "draft"
	StatusQueued   MessageStatus = "queued"
	StatusSent     MessageStatus = "sent"
)

// Message is a single email, inbound or outbound (spec §3).
type Message struct {
	ID                uint `gorm:"primaryKey"`
	ThreadID          *uint
	SenderID          uint    `gorm:"not null"`
	Sender            Contact `gorm:"foreignKey:SenderID"`
	MessageID         *string `gorm:"uniqueIndex"`
	InReplyTo         *string
	References        StringList
	Subject           string
	ContentText       string
	ContentHTML       *string
	Headers           HeaderMap
	SentAt            *time.Time
	ReceivedAt        time.Time `gorm:"autoCreateTime"`
	ReadAt            *time.Time
	Status            MessageStatus `gorm:"not null"`
	Folder            string
	QueuedAt          *time.Time
	SendAttempts      int
	LastSendAttemptAt *time.Time
	LastSendError     *string
}

// MessageContact is the (message, contact, role) junction (spec §3).
type MessageContact struct {
	MessageID uint               `gorm:"primaryKey"`
	ContactID uint               `gorm:"primaryKey"`
	Role      MessageContactRole `gorm:"primaryKey"`
}

// ThreadContact is the (thread, contact, role) junction (spec §3).
type ThreadContact struct {
	ThreadID  uint              `gorm:"primaryKey"`
	ContactID uint              `gorm:"primaryKey"`
	Role      ThreadContactRole `gorm:"primaryKey"`
}

// Attachment is a file attached to a Message (spec §3).
type Attachment struct {
	ID        uint `gorm:"primaryKey"`
	MessageID uint `gorm:"not null;index"`
	Filename  string
	MimeType  *string
	Size      *int64
	FilePath  string `gorm:"not null"`
	ContentID *string
	IsInline  bool
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// RuleActionType is the action a matching Rule applies (spec §3).
type RuleActionType string

const (
	ActionDeleteThread  RuleActionType = "delete_thread"
	ActionMoveToFolder  RuleActionType = "move_to_folder"
	ActionMarkRead      RuleActionType = "mark_read"
	ActionAddReplyLater RuleActionType = "add_to_reply_later"
	ActionAddSetAside   RuleActionType = "add_to_set_aside"
)

// Rule is a user-defined filter: a condition tree plus an action
// (spec §3, §4.D).
type Rule struct {
	ID            uint `gorm:"primaryKey"`
	Name          string
	ConditionsRaw string `gorm:"column:conditions"` // JSON-encoded ConditionGroup
	ActionType    RuleActionType
	ActionConfig  *string // JSON-encoded map, e.g. {"folderId": 42}
	FolderIDsRaw  string  `gorm:"column:folder_ids"` // JSON-encoded []uint
	Position      int
	Enabled       bool
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// RuleApplicationStatus is the lifecycle of a retroactive rule run
// (spec §3, §4.D).
type RuleApplicationStatus string

const (
	ApplicationPending   RuleApplicationStatus = "pending"
	ApplicationRunning   RuleApplicationStatus = "running"
	ApplicationCompleted RuleApplicationStatus = "completed"
	ApplicationFailed    RuleApplicationStatus = "failed"
)

// RuleApplication tracks the progress of one retroactive rule run
// (spec §3, §4.D, §8 S6).
type RuleApplication struct {
	ID             uint `gorm:"primaryKey"`
	RuleID         *uint
	Status         RuleApplicationStatus
	TotalCount     int
	ProcessedCount int
	MatchedCount   int
	Error          *string
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// SchedulerState is the singleton daily-task watermark row (spec §3, §4.G).
type SchedulerState struct {
	ID                       uint   `gorm:"primaryKey"`
	LastBackupDate           string // ISO calendar date, e.g. "2026-07-29"
	LastRetentionCleanupDate string
}

// IngestionState is the per-folder IMAP sync watermark (spec §3, §4.E).
type IngestionState struct {
	Folder      string `gorm:"primaryKey"`
	LastSyncAt  time.Time
	UIDValidity uint32
}
