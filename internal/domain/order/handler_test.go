package order

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/boostsocial/boost-api/internal/middleware"
	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

func asUser(id uuid.UUID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), id, role)))
		})
	}
}

func passThrough(next http.Handler) http.Handler { return next }

func serve(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetOrderIsOwnerScoped(t *testing.T) {
	owner := uuid.New()
	mine := singleOrder(smm.StatusInProgress, "1", "", "")
	mine.UserID = owner
	theirs := singleOrder(smm.StatusPending, "2", "", "")
	h := NewHandler(newTestService(newMemStore(mine, theirs), catalogOf(), &fakeWallet{}, &fakePlacer{}, &fakeFetcher{}))
	routes := h.Routes(asUser(owner, "user"), passThrough)

	rr := serve(routes, http.MethodGet, "/"+mine.ID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var env struct {
		Success bool          `json:"success"`
		Data    OrderResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Data.ID != mine.ID || env.Data.Status != smm.StatusInProgress {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	if rr := serve(routes, http.MethodGet, "/"+theirs.ID.String(), nil); rr.Code != http.StatusNotFound {
		t.Fatalf("another user's order: expected 404, got %d", rr.Code)
	}
	if rr := serve(routes, http.MethodGet, "/"+uuid.NewString(), nil); rr.Code != http.StatusNotFound {
		t.Fatalf("missing order: expected 404, got %d", rr.Code)
	}
	if rr := serve(routes, http.MethodGet, "/not-a-uuid", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rr.Code)
	}
}

func TestAdminListOrders(t *testing.T) {
	a := singleOrder(smm.StatusPending, "1", "", "")
	b := singleOrder(smm.StatusCompleted, "2", "", "")
	h := NewHandler(newTestService(newMemStore(a, b), catalogOf(), &fakeWallet{}, &fakePlacer{}, &fakeFetcher{}))

	rr := serve(h.AdminRoutes(), http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var env struct {
		Data []OrderResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 2 {
		t.Fatalf("expected both users' orders, got %d", len(env.Data))
	}
}

func TestAdminSetStatus(t *testing.T) {
	setStatus := func(h *Handler, id uuid.UUID, status string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(SetStatusRequest{Status: status})
		return serve(h.AdminRoutes(), http.MethodPut, "/"+id.String()+"/status", body)
	}

	t.Run("moves order and notifies", func(t *testing.T) {
		o := singleOrder(smm.StatusProcessing, "1", "", "")
		store := newMemStore(o)
		l := &recordingListener{}
		svc := NewService(store, catalogOf(), &fakeWallet{}, &fakePlacer{}, NewReconciler(&fakeFetcher{}, store, l), Options{})

		rr := setStatus(NewHandler(svc), o.ID, "Cancelled")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if got := store.get(o.ID).Status; got != smm.StatusCanceled {
			t.Fatalf("expected canceled, got %q", got)
		}
		if len(l.changes) != 1 || l.changes[0] != smm.StatusCanceled {
			t.Fatalf("expected one notification, got %v", l.changes)
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		o := singleOrder(smm.StatusPending, "1", "", "")
		store := newMemStore(o)
		h := NewHandler(newTestService(store, catalogOf(), &fakeWallet{}, &fakePlacer{}, &fakeFetcher{}))

		if rr := setStatus(h, o.ID, "shipped"); rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if store.updates != 0 {
			t.Fatal("no write for an invalid status")
		}
	})

	t.Run("missing order", func(t *testing.T) {
		h := NewHandler(newTestService(newMemStore(), catalogOf(), &fakeWallet{}, &fakePlacer{}, &fakeFetcher{}))
		if rr := setStatus(h, uuid.New(), "completed"); rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("lost race with reconcile", func(t *testing.T) {
		o := singleOrder(smm.StatusPending, "1", "", "")
		store := newMemStore(o)
		store.staleIDs[o.ID] = true
		h := NewHandler(newTestService(store, catalogOf(), &fakeWallet{}, &fakePlacer{}, &fakeFetcher{}))

		if rr := setStatus(h, o.ID, "completed"); rr.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rr.Code)
		}
		if store.get(o.ID).Status != smm.StatusPending {
			t.Fatal("status must be unchanged after a lost race")
		}
	})
}

func TestSetStatusSameStatusIsNoop(t *testing.T) {
	o := singleOrder(smm.StatusCompleted, "1", "", "")
	store := newMemStore(o)
	s := newTestService(store, catalogOf(), &fakeWallet{}, &fakePlacer{}, &fakeFetcher{})

	got, err := s.SetStatus(context.Background(), o.ID, "complete")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.Status != smm.StatusCompleted || store.updates != 0 {
		t.Fatalf("expected no write, got status %q updates %d", got.Status, store.updates)
	}
}
