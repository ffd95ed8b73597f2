package services

import (
	"context"
	"sync"
	"testing"

	"socialpilot/internal/automation"
	"socialpilot/internal/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newRunLogTestDB 使用命名的共享内存库，保证 worker goroutine 看到同一张表
func newRunLogTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:runs_"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []automation.RenderedAction
	err       error
	block     chan struct{}
}

func (d *recordingDeliverer) Deliver(ctx context.Context, a automation.RenderedAction) error {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, a)
	return d.err
}

func (d *recordingDeliverer) actions() []automation.RenderedAction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]automation.RenderedAction(nil), d.delivered...)
}

type published struct {
	Type      string
	AccountID string
	Data      interface{}
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(msgType, accountID string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{Type: msgType, AccountID: accountID, Data: data})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Type)
	}
	return out
}
