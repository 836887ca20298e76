package database

import (
	"errors"
	"fmt"

	"hivemind-backend/pkg/models"
)

// ErrNotFound 通用的"记录不存在"哨兵错误
var ErrNotFound = errors.New("record not found")

// Store 定义核心消费的持久化接口。实现只保证单文档写入原子；
// Space+User 两份文档的复合更新不在事务内（见 Manager）。
type Store interface {
	// 用户
	SaveUser(user *models.User) error
	GetUser(id string) (*models.User, error)
	GetAllUsers() ([]models.User, error)

	// 空间
	SaveSpace(space *models.Space) error
	GetSpace(id string) (*models.Space, error)
	GetSpaceByInviteCode(code string) (*models.Space, error)
	DeleteSpace(id string) error

	// 过滤后的共享文档
	SaveFilteredDocument(doc *models.FilteredDocument) error
	ListSpaceDocuments(spaceID string, limit int) ([]models.FilteredDocument, error)

	// 审批队列
	SavePendingApproval(approval *models.PendingApproval) error
	GetPendingApproval(id string) (*models.PendingApproval, error)
	GetPendingApprovals(userID string) ([]models.PendingApproval, error)
	UpdateApprovalStatus(id string, status models.ApprovalStatus) error

	// 原始对话（仅原样保存，核心不回读）
	SaveRawConversation(turn *models.RawConversationTurn) error

	// 健康检查与关闭
	HealthCheck() error
	Close() error
}

// Config 持久化配置。Driver 必须显式指定，不做运行时兜底切换。
type Config struct {
	Driver      string // "memory" 或 "postgres"
	PostgresDSN string
}

// New selects the storage backend once at construction. There is no
// hidden fallback: an unusable configuration is an error, not a silent
// switch to another backend.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("database: postgres driver requires a DSN")
		}
		return NewPostgresStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("database: unknown driver %q (want \"memory\" or \"postgres\")", cfg.Driver)
	}
}
