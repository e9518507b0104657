package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OveRide-Phoenix/kk-v1/pkg/database"
	"github.com/OveRide-Phoenix/kk-v1/pkg/nl"
	"github.com/OveRide-Phoenix/kk-v1/pkg/repositories"
)

// queryStub scripts the fake executor: the first stub whose fragment is a
// substring of the statement answers it.
type queryStub struct {
	fragment string
	rows     []map[string]any
	err      error
}

type recordedCall struct {
	sql  string
	args []any
}

// fakeExecutor satisfies database.Executor with scripted results and a log
// of every statement it saw. InTx runs the callback against the same fake,
// flipping inTx so tests can assert that writes happened transactionally.
type fakeExecutor struct {
	mu       sync.Mutex
	stubs    []queryStub
	queries  []recordedCall
	execs    []recordedCall
	affected int64
	execErr  error
	txErr    error
	inTx     bool
	txExecs  int
}

func (f *fakeExecutor) stub(fragment string, rows []map[string]any) {
	f.stubs = append(f.stubs, queryStub{fragment: fragment, rows: rows})
}

func (f *fakeExecutor) stubErr(fragment string, err error) {
	f.stubs = append(f.stubs, queryStub{fragment: fragment, err: err})
}

func (f *fakeExecutor) QueryRows(_ context.Context, sql string, args ...any) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, recordedCall{sql: sql, args: args})
	for _, s := range f.stubs {
		if strings.Contains(sql, s.fragment) {
			return s.rows, s.err
		}
	}
	return []map[string]any{}, nil
}

func (f *fakeExecutor) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, recordedCall{sql: sql, args: args})
	if f.inTx {
		f.txExecs++
	}
	if f.execErr != nil {
		return 0, f.execErr
	}
	if f.affected == 0 {
		return 1, nil
	}
	return f.affected, nil
}

func (f *fakeExecutor) InTx(_ context.Context, fn func(tx database.Executor) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	f.inTx = true
	defer func() { f.inTx = false }()
	return fn(f)
}

// mockSQLGenerator returns a canned completion or error.
type mockSQLGenerator struct {
	response   string
	err        error
	lastPrompt string
	lastQuery  string
}

func (m *mockSQLGenerator) GenerateSQL(_ context.Context, systemPrompt, query string) (string, error) {
	m.lastPrompt = systemPrompt
	m.lastQuery = query
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockSQLGenerator) Model() string { return "mock-model" }

func serviceClock() nl.Clock {
	return nl.Clock{
		Now: func() time.Time { return time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC) },
		Loc: time.UTC,
	}
}

func newTestNLService(t *testing.T, db *fakeExecutor) *NLService {
	t.Helper()
	shared, err := nl.LoadSharedResources("../../nl")
	require.NoError(t, err)
	registry, err := nl.LoadRegistry("../../nl", shared, serviceClock(), zap.NewNop())
	require.NoError(t, err)
	logger := zap.NewNop()
	return NewNLService(
		registry,
		db,
		repositories.NewCustomerRepository(db, logger),
		repositories.NewMenuItemRepository(db, logger),
		logger,
	)
}

func newTestPipeline(db *fakeExecutor) *UpdatePipeline {
	logger := zap.NewNop()
	return NewUpdatePipeline(db, repositories.NewMenuItemRepository(db, logger), logger)
}
