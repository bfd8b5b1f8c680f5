package httpdoc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"anwarfarm/internal/core"
	"anwarfarm/internal/remote"
)

type docServer struct {
	mu     sync.Mutex
	doc    string
	status int
}

func (d *docServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != 0 {
		w.WriteHeader(d.status)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if d.doc == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, d.doc)
	case http.MethodPut:
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		b, _ := io.ReadAll(r.Body)
		d.doc = string(b)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestClientPutThenGet(t *testing.T) {
	srv := &docServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := New(ts.URL, ts.Client())
	ctx := context.Background()

	if _, err := c.Get(ctx); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	in := []core.Transaction{{ID: "a", Date: core.NewDate(2024, 3, 1), Description: "Panen", Income: 900, CreatedAt: 5}}
	if err := c.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out) != 1 || out[0].ID != "a" || out[0].Date.String() != "2024-03-01" || out[0].Income != 900 || out[0].CreatedAt != 5 {
		t.Fatalf("unexpected %+v", out)
	}
}

func TestClientRejectsNonArray(t *testing.T) {
	ts := httptest.NewServer(&docServer{doc: `{"error":"quota"}`})
	defer ts.Close()

	if _, err := New(ts.URL, ts.Client()).Get(context.Background()); !errors.Is(err, remote.ErrNotArray) {
		t.Fatalf("expected ErrNotArray, got %v", err)
	}
}

func TestClientNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(&docServer{status: http.StatusBadGateway})
	defer ts.Close()
	c := New(ts.URL, ts.Client())

	if _, err := c.Get(context.Background()); err == nil {
		t.Fatalf("expected error on 502")
	}
	if err := c.Put(context.Background(), nil); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestClientUnreachable(t *testing.T) {
	ts := httptest.NewServer(&docServer{})
	url := ts.URL
	ts.Close()

	if _, err := New(url, nil).Get(context.Background()); err == nil {
		t.Fatalf("expected error for closed server")
	}
}
