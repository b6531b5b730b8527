package main

import (
	"bytes"
	"context"
	"fmt"
	"hbs/src/boot"
	"hbs/src/models"
	"hbs/src/notify"
	"hbs/src/payments"
	"hbs/src/store"
	"hbs/src/syncer"
	"hbs/src/types"
	"hbs/src/vault"
	"hbs/src/worker"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopMail struct{}

func (noopMail) Send(context.Context, string, string, string) error { return nil }

// testApp wires the full component graph onto the in-memory store, with
// the worker pool feeding captured tasks into a channel.
func testApp(t *testing.T) (*store.MemoryStore, chan worker.Task) {
	t.Helper()
	mem := store.NewMemoryStore()
	v := vault.New(mem.Ports().Tenants, nil)
	links := payments.NewLinkService(mem, v)
	dispatcher := notify.NewDispatcher(mem.Ports(), v, links, noopMail{})

	tasks := make(chan worker.Task, 16)
	pool := worker.NewPool(nil, func(_ context.Context, task worker.Task) error {
		tasks <- task
		return nil
	}, worker.DefaultRetryPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pool.Run(ctx)

	enqueue := func(ctx context.Context, id uint, nt types.NotificationType) {
		pool.Enqueue(ctx, worker.Task{Kind: worker.TaskDispatch, ReservationID: id, NotificationType: nt})
	}
	reconciler := syncer.New(mem.Ports(), v, nil, enqueue)
	boot.NewApp(&boot.App{
		Store:      mem.Ports(),
		Vault:      v,
		Pool:       pool,
		Reconciler: reconciler,
		Jobs:       syncer.NewJobs(mem.Ports(), v, reconciler, nil, enqueue),
		Dispatcher: dispatcher,
		Links:      links,
		Webhooks:   payments.NewWebhookReconciler(mem, enqueue),
		Guests:     notify.NewGuestResponder(mem, v, links, reconciler),
	})
	return mem, tasks
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("localdate", localDateValidatorFunc)
	}
	router := gin.New()
	paymentWebhookRoutes(router)
	messagingWebhookRoutes(router)
	group := router.Group(apiPrefix)
	syncHandlers(group)
	reservationHandlers(group)
	return router
}

func awaitTask(t *testing.T, tasks chan worker.Task) worker.Task {
	t.Helper()
	select {
	case task := <-tasks:
		return task
	case <-time.After(2 * time.Second):
		t.Fatal("no task reached the pool")
		return worker.Task{}
	}
}

func TestMessagingWebhookHandshake(t *testing.T) {
	t.Setenv("WHATSAPP_WEBHOOK_VERIFY_TOKEN", "verify-me")
	testApp(t)
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet,
		"/api/v1/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMessagingWebhookEnqueuesInboundText(t *testing.T) {
	mem, tasks := testApp(t)
	mem.SeedOrganization(&models.Organization{
		ID: 1,
		Settings: &types.JSONB{
			"whatsapp": map[string]any{"apiKey": "k", "phoneNumberId": "555", "enabled": true},
		},
	})
	router := testRouter()

	envelope := `{"entry": [{"changes": [{"value": {
		"metadata": {"phone_number_id": "555"},
		"contacts": [{"profile": {"name": "Carlos"}}],
		"messages": [{"from": "573001112233", "type": "text", "text": {"body": "hola"}}]
	}}]}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/whatsapp", bytes.NewBufferString(envelope))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	task := awaitTask(t, tasks)
	assert.Equal(t, worker.TaskInboundMessage, task.Kind)
	assert.Equal(t, uint(1), task.OrganizationID)
	assert.Equal(t, "573001112233", task.From)
	assert.Equal(t, "hola", task.Text)
	assert.Equal(t, "Carlos", task.ProfileName)
}

func TestMessagingWebhookIgnoresStatusCallbacks(t *testing.T) {
	testApp(t)
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/whatsapp",
		bytes.NewBufferString(`{"entry": [{"changes": [{"value": {"statuses": [{"status": "delivered"}]}}]}]}`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMessagingWebhookUnknownTenantDropped(t *testing.T) {
	_, tasks := testApp(t)
	router := testRouter()

	envelope := `{"entry": [{"changes": [{"value": {
		"metadata": {"phone_number_id": "nobody"},
		"messages": [{"from": "573001112233", "type": "text", "text": {"body": "hola"}}]
	}}]}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/whatsapp", bytes.NewBufferString(envelope))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, tasks)
}

func TestPaymentWebhookAcknowledgesAndEnqueues(t *testing.T) {
	_, tasks := testApp(t)
	router := testRouter()

	payload := `{"event": "payment.paid", "data": {"payment_link": "LNK_1", "reference": "RES-9-1756400000000"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/payment", bytes.NewBufferString(payload))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)

	task := awaitTask(t, tasks)
	assert.Equal(t, worker.TaskPaymentEvent, task.Kind)
}

func TestPaymentWebhookRejectsGarbage(t *testing.T) {
	testApp(t)
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/payment", bytes.NewBufferString("not json"))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncRunValidation(t *testing.T) {
	testApp(t)
	router := testRouter()

	// end before start
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/1/sync",
		bytes.NewBufferString(`{"start_date": "2026-09-08", "end_date": "2026-09-01"}`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// tenant without pms settings
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/organizations/1/sync",
		bytes.NewBufferString(`{"start_date": "2026-09-01", "end_date": "2026-09-08"}`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCheckInCompleteQueuesConfirmation(t *testing.T) {
	mem, tasks := testApp(t)
	reservation := &models.Reservation{
		OrganizationID: 1,
		GuestName:      "Ana Gomez",
		CheckInDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CheckOutDate:   time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, mem.Create(context.Background(), reservation))
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/reservations/%d/checkin-complete", reservation.ID), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	after, _ := mem.FindByID(context.Background(), reservation.ID)
	assert.True(t, after.OnlineCheckInCompleted)
	assert.NotNil(t, after.OnlineCheckInCompletedAt)

	task := awaitTask(t, tasks)
	assert.Equal(t, worker.TaskDispatch, task.Kind)
	assert.Equal(t, types.NOTIFY_CHECKIN_CONFIRMATION, task.NotificationType)

	// completing twice is a no-op
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/reservations/%d/checkin-complete", reservation.ID), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, tasks)
}

func TestGetReservationNotFound(t *testing.T) {
	testApp(t)
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/999", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
