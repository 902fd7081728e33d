package service

import (
	"context"
	"math"
	"time"

	"go-digital-inventory/internal/metrics"
	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/repository"
	"go-digital-inventory/internal/ws"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

// Publisher pushes events to live-feed clients. *ws.Hub implements it.
type Publisher interface {
	Publish(event ws.Event)
}

type AuditEntry struct {
	Action        model.AuditAction
	Actor         string
	Details       string
	ItemID        *uint
	TransactionID *uint
}

type AuditPage struct {
	AuditLogs  []model.AuditLog `json:"audit_logs"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

type AuditService interface {
	// Record appends an entry and publishes it. Failures are logged and never
	// reach the caller, so a primary mutation is not undone by its audit.
	Record(ctx context.Context, entry AuditEntry)
	List(ctx context.Context, page, limit int) (*AuditPage, error)
}

type auditService struct {
	repo    repository.AuditRepository
	node    *snowflake.Node
	pub     Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewAuditService(repo repository.AuditRepository, node *snowflake.Node, pub Publisher, m *metrics.Metrics, log *zap.Logger) AuditService {
	return &auditService{
		repo:    repo,
		node:    node,
		pub:     pub,
		metrics: m,
		log:     log.Named("audit"),
		now:     time.Now,
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	rec := &model.AuditLog{
		ID:            s.node.Generate().Int64(),
		Action:        entry.Action,
		Actor:         entry.Actor,
		Timestamp:     s.now(),
		Details:       entry.Details,
		ItemID:        entry.ItemID,
		TransactionID: entry.TransactionID,
	}

	// the request may already be done; the entry still has to land
	if err := s.repo.Append(context.WithoutCancel(ctx), rec); err != nil {
		s.metrics.AuditWriteFailed(string(entry.Action))
		s.log.Warn("failed to persist audit entry",
			zap.String("action", string(entry.Action)),
			zap.String("actor", entry.Actor),
			zap.Error(err),
		)
	}

	if s.pub != nil {
		s.pub.Publish(ws.Event{
			Type:    "audit",
			Action:  string(entry.Action),
			Actor:   entry.Actor,
			Message: entry.Details,
			Data:    rec,
		})
	}
}

func (s *auditService) List(ctx context.Context, page, limit int) (*AuditPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}

	// Pages whose offset does not fit in an int lie past every stored
	// entry. They are served empty with the first page queried for the total.
	beyond := page-1 > (math.MaxInt-limit)/limit
	offset := 0
	if !beyond {
		offset = (page - 1) * limit
	}

	logs, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, persistence("listing audit logs", err)
	}
	if logs == nil || beyond {
		logs = []model.AuditLog{}
	}

	return &AuditPage{
		AuditLogs:  logs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func uintPtr(v uint) *uint { return &v }
