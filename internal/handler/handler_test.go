package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/database"
	"github.com/LUCIFER14144/email-marketing-platform/internal/events"
	"github.com/LUCIFER14144/email-marketing-platform/internal/ledger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func newTrackingHandler(t *testing.T, pub events.Publisher) (*Handler, *ledger.Ledger) {
	t.Helper()

	l := ledger.New()
	require.NoError(t, l.Create(model.Campaign{ID: "c1", Subject: "s", TotalEmails: 1}))
	require.NoError(t, l.AddTracking(model.TrackingRecord{TrackingID: "t1", CampaignID: "c1", RecipientEmail: "a@b.c"}))

	return New(nil, logger.Nop(), &config.Config{}, nil, nil, l, pub), l
}

func trackRequest(method, target string, values map[string]string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	for k, v := range values {
		r.SetPathValue(k, v)
	}
	return r
}

func TestRecipientInputDecoding(t *testing.T) {
	var list []recipientInput
	require.NoError(t, json.Unmarshal([]byte(`["a@x.io", {"email":"b@x.io","name":"Bea"}]`), &list))
	require.Len(t, list, 2)
	assert.Equal(t, recipientInput{Email: "a@x.io"}, list[0])
	assert.Equal(t, recipientInput{Email: "b@x.io", Name: "Bea"}, list[1])

	assert.Error(t, json.Unmarshal([]byte(`[42]`), &list))
}

func TestTrackOpenPublishesFirstOpenOnly(t *testing.T) {
	pub := &recordingPublisher{}
	h, l := newTrackingHandler(t, pub)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.TrackOpen(rec, trackRequest(http.MethodGet, "/track/open/t1", map[string]string{"trackingId": "t1"}))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", rec.Header().Get("Cache-Control"))
	}

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.KindOpen, pub.events[0].Kind)
	assert.Equal(t, "c1", pub.events[0].CampaignID)
	assert.False(t, pub.events[0].At.IsZero())

	stats, ok := l.Get("c1")
	require.True(t, ok)
	assert.Equal(t, 1, stats.OpenCount)
}

func TestTrackClickPublishFailureStillRedirects(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	h, l := newTrackingHandler(t, pub)

	rec := httptest.NewRecorder()
	h.TrackClick(rec, trackRequest(http.MethodGet, "/track/click/t1/l1?url=https%3A%2F%2Facme.test%2Fsale",
		map[string]string{"trackingId": "t1", "linkId": "l1"}))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://acme.test/sale", rec.Header().Get("Location"))

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.KindClick, pub.events[0].Kind)
	assert.Equal(t, "l1", pub.events[0].LinkID)
	assert.Equal(t, "https://acme.test/sale", pub.events[0].URL)

	rec2, ok := l.Tracking("t1")
	require.True(t, ok)
	require.Len(t, rec2.Clicks, 1)
	assert.Equal(t, "l1", rec2.Clicks[0].LinkID)
}

func TestTrackClickUnknownIDPublishesNothing(t *testing.T) {
	pub := &recordingPublisher{}
	h, _ := newTrackingHandler(t, pub)

	rec := httptest.NewRecorder()
	h.TrackClick(rec, trackRequest(http.MethodGet, "/track/click/nope/l1?url=ftp%3A%2F%2Fx", map[string]string{"trackingId": "nope", "linkId": "l1"}))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Empty(t, pub.events)
}

func TestTrackOpenOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := database.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := rdb.Subscribe(ctx, "engagement")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	h, _ := newTrackingHandler(t, events.NewRedisPublisher(rdb, "engagement"))
	rec := httptest.NewRecorder()
	h.TrackOpen(rec, trackRequest(http.MethodGet, "/track/open/t1", map[string]string{"trackingId": "t1"}))
	require.Equal(t, http.StatusOK, rec.Code)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, events.KindOpen, got.Kind)
	assert.Equal(t, "t1", got.TrackingID)
}

func TestHealthReportsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := database.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { rdb.Close() })

	h := New(rdb, logger.Nop(), &config.Config{}, nil, nil, ledger.New(), nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Services["redis"])

	mr.Close()
	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Services["redis"])
	assert.Equal(t, "degraded", resp.Status)
}
