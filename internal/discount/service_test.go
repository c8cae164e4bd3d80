package discount_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/velmart/pricing-core/internal/audit"
	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/rule"
)

type fakeAdminStore struct {
	created  []*discount.Discount
	statuses map[int64]rule.Status
	deleted  []int64
	err      error
}

func (f *fakeAdminStore) CreateDiscount(_ context.Context, d *discount.Discount) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, d)
	return int64(len(f.created)), nil
}

func (f *fakeAdminStore) SetDiscountStatus(_ context.Context, id int64, status rule.Status) error {
	if f.err != nil {
		return f.err
	}
	if f.statuses == nil {
		f.statuses = make(map[int64]rule.Status)
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeAdminStore) DeleteDiscount(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAuditStore struct {
	entries []audit.Entry
}

func (f *fakeAuditStore) InsertAuditEntry(_ context.Context, e audit.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func newAdminService(store *fakeAdminStore, auditStore *fakeAuditStore) *discount.Service {
	return &discount.Service{
		Store:     store,
		Validator: discount.NewValidator(),
		Audit:     audit.Service{Store: auditStore, Enabled: true},
	}
}

func TestServiceCreate(t *testing.T) {
	store := &fakeAdminStore{}
	auditStore := &fakeAuditStore{}
	svc := newAdminService(store, auditStore)

	draft := validDraft()
	draft.SynergyIDs = []int64{7}
	id, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	require.Len(t, store.created, 1)
	created := store.created[0]
	require.Equal(t, discount.TypeBrand, created.Type)
	require.Equal(t, rule.ValuePercent, created.ValueType)
	cond := created.SynergyCondition()
	require.NotNil(t, cond, "synergy ids become a synergy condition")
	require.Equal(t, []int64{7}, cond.SynergyIDs)

	require.Len(t, auditStore.entries, 1)
	require.Equal(t, "discount.create", auditStore.entries[0].Action)
	require.Equal(t, int64(1), auditStore.entries[0].ResourceID)
}

func TestServiceCreateRejectsInvalidDraft(t *testing.T) {
	store := &fakeAdminStore{}
	svc := newAdminService(store, &fakeAuditStore{})
	draft := validDraft()
	draft.Value = 0
	_, err := svc.Create(context.Background(), draft)
	require.Error(t, err)
	require.Empty(t, store.created, "an invalid draft never reaches the store")
}

func TestServiceSetStatus(t *testing.T) {
	store := &fakeAdminStore{}
	auditStore := &fakeAuditStore{}
	svc := newAdminService(store, auditStore)

	require.NoError(t, svc.SetStatus(context.Background(), 7, rule.StatusPaused))
	require.Equal(t, rule.StatusPaused, store.statuses[7])
	require.Len(t, auditStore.entries, 1)
	require.Equal(t, "discount.set_status", auditStore.entries[0].Action)

	require.Error(t, svc.SetStatus(context.Background(), 7, rule.Status(99)), "unknown status")
}

func TestServiceDelete(t *testing.T) {
	store := &fakeAdminStore{}
	auditStore := &fakeAuditStore{}
	svc := newAdminService(store, auditStore)

	require.NoError(t, svc.Delete(context.Background(), 7))
	require.Equal(t, []int64{7}, store.deleted)
	require.Equal(t, "discount.delete", auditStore.entries[0].Action)
}

func TestServicePropagatesStoreErrors(t *testing.T) {
	svc := newAdminService(&fakeAdminStore{err: errors.New("boom")}, &fakeAuditStore{})
	_, err := svc.Create(context.Background(), validDraft())
	require.Error(t, err)
	require.Error(t, svc.SetStatus(context.Background(), 1, rule.StatusActive))
	require.Error(t, svc.Delete(context.Background(), 1))
}

func adminRouter(svc *discount.Service) http.Handler {
	h := discount.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Post("/admin/discounts", h.Create)
	r.Patch("/admin/discounts/{id}/status", h.SetStatus)
	r.Delete("/admin/discounts/{id}", h.Delete)
	return r
}

func TestHandlerCreate(t *testing.T) {
	store := &fakeAdminStore{}
	router := adminRouter(newAdminService(store, &fakeAuditStore{}))

	raw, err := json.Marshal(validDraft())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/discounts", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var res map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, int64(1), res["id"])
}

func TestHandlerCreateValidationError(t *testing.T) {
	router := adminRouter(newAdminService(&fakeAdminStore{}, &fakeAuditStore{}))
	req := httptest.NewRequest(http.MethodPost, "/admin/discounts",
		bytes.NewBufferString(`{"type":3,"value":0,"valueType":1,"status":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerSetStatusAndDelete(t *testing.T) {
	store := &fakeAdminStore{}
	router := adminRouter(newAdminService(store, &fakeAuditStore{}))

	req := httptest.NewRequest(http.MethodPatch, "/admin/discounts/7/status",
		bytes.NewBufferString(`{"status":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, rule.StatusPaused, store.statuses[7])

	req = httptest.NewRequest(http.MethodDelete, "/admin/discounts/7", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int64{7}, store.deleted)

	req = httptest.NewRequest(http.MethodDelete, "/admin/discounts/abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
