package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/udisondev/outpost/internal/model"
)

// ErrSimulated is a sentinel error for testing error handling paths
var ErrSimulated = errors.New("simulated error for testing")

// MockLedger: in-memory журнал сгенерированных лагерей для unit тестов.
// Не требует реального PostgreSQL.
type MockLedger struct {
	mu      sync.Mutex
	records []*model.EncampmentRecord
	nextID  int64

	// Fail заставляет Save возвращать ErrSimulated.
	Fail bool
}

// NewMockLedger создаёт пустой журнал.
func NewMockLedger() *MockLedger {
	return &MockLedger{}
}

// Save сохраняет копию записи и присваивает ей ID.
func (m *MockLedger) Save(ctx context.Context, rec *model.EncampmentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail {
		return ErrSimulated
	}

	m.nextID++
	rec.ID = m.nextID

	// Храним копию чтобы тест не видел последующих мутаций
	cp := *rec
	cp.Members = slices.Clone(rec.Members)
	m.records = append(m.records, &cp)
	return nil
}

// Records возвращает сохранённые записи в порядке сохранения.
func (m *MockLedger) Records() []*model.EncampmentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}
