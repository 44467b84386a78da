package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"greencharge/backend/services/reservations-service/internal/repository"
)

type fakeAuditor struct {
	calls   atomic.Int32
	drifted []repository.SlotUsage
	err     error
}

func (f *fakeAuditor) AuditSlots(context.Context) ([]repository.SlotUsage, error) {
	f.calls.Add(1)
	return f.drifted, f.err
}

func TestRunOnceLogsEveryDriftedResource(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	auditor := &fakeAuditor{drifted: []repository.SlotUsage{
		{ResourceID: uuid.New(), TotalSlots: 4, AvailableSlots: 1, ActiveBookings: 2},
		{ResourceID: uuid.New(), TotalSlots: 2, AvailableSlots: 2, ActiveBookings: 1},
	}}
	r := NewReconciler(auditor, "", zap.New(core))

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 2, logs.FilterMessage("slot counter drift").Len())

	drifts := []int64{}
	for _, entry := range logs.All() {
		drifts = append(drifts, entry.ContextMap()["drift"].(int64))
	}
	require.ElementsMatch(t, []int64{1, -1}, drifts)
}

func TestRunOncePropagatesErrors(t *testing.T) {
	r := NewReconciler(&fakeAuditor{err: errors.New("db down")}, "", nil)
	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	r := NewReconciler(&fakeAuditor{}, "every now and then", nil)
	require.Error(t, r.Start(context.Background()))
}

func TestScheduledAuditRuns(t *testing.T) {
	auditor := &fakeAuditor{}
	r := NewReconciler(auditor, "@every 1s", nil)
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	require.Eventually(t, func() bool { return auditor.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
