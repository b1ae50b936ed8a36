package application

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alerts "vitalwatch/internal/alerts/domain"
	alertmemory "vitalwatch/internal/alerts/infrastructure/memory"
	"vitalwatch/internal/eventbus"
	vitals "vitalwatch/internal/vitals/domain"
)

func f(v float64) *float64 { return &v }

type fakeBus struct {
	mu        sync.Mutex
	published []*eventbus.Message
}

func (b *fakeBus) Publish(_ context.Context, topic, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, &eventbus.Message{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (b *fakeBus) Subscribe(string, string, int, eventbus.Handler) error { return nil }

func (b *fakeBus) Close(context.Context) error { return nil }

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

func newTestService(t *testing.T, bus eventbus.Bus) (*Service, *alertmemory.AlertRepository) {
	t.Helper()
	repo := alertmemory.NewAlertRepository()
	engine := alerts.NewEngine(alerts.DefaultRules(), nil)
	opts := []ServiceOption{
		WithClock(fixedClock{at: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}),
	}
	if bus != nil {
		opts = append(opts, WithBus(bus))
	}
	service, err := NewService(repo, engine, nil, opts...)
	require.NoError(t, err)
	return service, repo
}

func TestEvaluateReadingPersistsAndPublishesRaisedAlerts(t *testing.T) {
	bus := &fakeBus{}
	service, _ := newTestService(t, bus)

	err := service.EvaluateReading(context.Background(), &vitals.Reading{
		ID:               "r1",
		PatientID:        "p1",
		OxygenSaturation: f(88),
		HeartRate:        f(140),
	}, "ADULT_RESTING")
	require.NoError(t, err)

	active, err := service.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.Len(t, bus.published, 2)
	for _, msg := range bus.published {
		assert.Equal(t, eventbus.TopicMedicalAlerts, msg.Topic)
		assert.Equal(t, "p1", msg.Key)
		var alert alerts.Alert
		require.NoError(t, json.Unmarshal(msg.Payload, &alert))
		assert.Equal(t, alerts.StatusActive, alert.Status)
	}
}

func TestEvaluateReadingWithNormalVitalsRaisesNothing(t *testing.T) {
	bus := &fakeBus{}
	service, _ := newTestService(t, bus)

	err := service.EvaluateReading(context.Background(), &vitals.Reading{
		ID:               "r1",
		PatientID:        "p1",
		HeartRate:        f(72),
		OxygenSaturation: f(98),
	}, "ADULT_RESTING")
	require.NoError(t, err)

	active, err := service.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Empty(t, bus.published)
}

func TestAcknowledgeTransitionsAlert(t *testing.T) {
	service, repo := newTestService(t, nil)
	seed := &alerts.Alert{
		ID:          "a1",
		PatientID:   "p1",
		Severity:    alerts.SeverityCritical,
		AlertType:   alerts.TypeHeartRate,
		Status:      alerts.StatusActive,
		RequiresAck: true,
	}
	require.NoError(t, repo.Save(context.Background(), seed))

	acked, err := service.Acknowledge(context.Background(), "a1", "nurse.jones")

	require.NoError(t, err)
	assert.Equal(t, alerts.StatusAcknowledged, acked.Status)
	assert.Equal(t, "nurse.jones", acked.AcknowledgedBy)
	assert.False(t, acked.AcknowledgedAt.IsZero())

	stored, err := repo.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, alerts.StatusAcknowledged, stored.Status)
}

func TestAcknowledgeTwiceKeepsFirstAcknowledger(t *testing.T) {
	service, repo := newTestService(t, nil)
	require.NoError(t, repo.Save(context.Background(), &alerts.Alert{
		ID:        "a1",
		PatientID: "p1",
		Severity:  alerts.SeverityWarning,
		Status:    alerts.StatusActive,
	}))

	first, err := service.Acknowledge(context.Background(), "a1", "nurse.jones")
	require.NoError(t, err)

	second, err := service.Acknowledge(context.Background(), "a1", "nurse.smith")
	require.NoError(t, err)

	assert.Equal(t, first.AcknowledgedBy, second.AcknowledgedBy)
	assert.Equal(t, "nurse.jones", second.AcknowledgedBy)
}

// contendedAlertRepo lets a rival acknowledger slip in between the
// service's read and its conditional update.
type contendedAlertRepo struct {
	*alertmemory.AlertRepository
	rival string
	once  sync.Once
}

func (r *contendedAlertRepo) MarkAcknowledged(ctx context.Context, id, acknowledgedBy string, at time.Time) (bool, error) {
	r.once.Do(func() {
		_, _ = r.AlertRepository.MarkAcknowledged(ctx, id, r.rival, at.Add(-time.Second))
	})
	return r.AlertRepository.MarkAcknowledged(ctx, id, acknowledgedBy, at)
}

func TestAcknowledgeLostRaceReturnsPersistedAcknowledger(t *testing.T) {
	repo := &contendedAlertRepo{AlertRepository: alertmemory.NewAlertRepository(), rival: "nurse.jones"}
	engine := alerts.NewEngine(alerts.DefaultRules(), nil)
	service, err := NewService(repo, engine, nil,
		WithClock(fixedClock{at: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}),
	)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), &alerts.Alert{
		ID:        "a1",
		PatientID: "p1",
		Severity:  alerts.SeverityCritical,
		Status:    alerts.StatusActive,
	}))

	acked, err := service.Acknowledge(context.Background(), "a1", "nurse.smith")

	require.NoError(t, err)
	assert.Equal(t, alerts.StatusAcknowledged, acked.Status)
	assert.Equal(t, "nurse.jones", acked.AcknowledgedBy)

	stored, err := repo.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "nurse.jones", stored.AcknowledgedBy)
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	service, _ := newTestService(t, nil)

	_, err := service.Acknowledge(context.Background(), "missing", "nurse.jones")

	require.ErrorIs(t, err, alerts.ErrNotFound)
}

func TestCountActiveCritical(t *testing.T) {
	service, repo := newTestService(t, nil)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &alerts.Alert{ID: "a1", PatientID: "p1", Severity: alerts.SeverityCritical, Status: alerts.StatusActive}))
	require.NoError(t, repo.Save(ctx, &alerts.Alert{ID: "a2", PatientID: "p2", Severity: alerts.SeverityCritical, Status: alerts.StatusActive}))
	require.NoError(t, repo.Save(ctx, &alerts.Alert{ID: "a3", PatientID: "p1", Severity: alerts.SeverityWarning, Status: alerts.StatusActive}))
	require.NoError(t, repo.Save(ctx, &alerts.Alert{ID: "a4", PatientID: "p1", Severity: alerts.SeverityCritical, Status: alerts.StatusAcknowledged}))

	count, err := service.CountActiveCritical(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
