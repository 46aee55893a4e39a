package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Humphrey-He/poitrack/configs"
	"github.com/Humphrey-He/poitrack/pkg/entity"
	poierrors "github.com/Humphrey-He/poitrack/pkg/errors"
	"github.com/Humphrey-He/poitrack/pkg/loader"
)

func labelServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Fetch(t *testing.T) {
	var gotPath, gotDim, gotIndices string
	srv := labelServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDim = r.URL.Query().Get("dim")
		gotIndices = r.URL.Query().Get("indices")
		writeJSON(w, http.StatusOK, loader.Response{Labels: []loader.Label{
			loader.NewTitled("a"),
			loader.NewTitled("b"),
		}})
	})

	c, err := New(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	labels, err := c.Fetch(context.Background(), entity.Edge, []int{4, 9})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/api/labels" {
		t.Errorf("path = %q, want /api/labels", gotPath)
	}
	if gotDim != "2" || gotIndices != "4,9" {
		t.Errorf("query dim=%q indices=%q", gotDim, gotIndices)
	}
	if len(labels) != 2 || *labels[0].Title != "a" || *labels[1].Title != "b" {
		t.Errorf("unexpected labels %+v", labels)
	}
}

func TestClient_FetchTrimsExtraLabels(t *testing.T) {
	srv := labelServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, loader.Response{Labels: []loader.Label{
			loader.NewTitled("a"),
			loader.NewTitled("b"),
		}})
	})
	c, _ := New(srv.URL)

	labels, err := c.Fetch(context.Background(), entity.Point, []int{1})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(labels) != 1 {
		t.Errorf("len(labels) = %d, want 1", len(labels))
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := labelServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, loader.Response{Error: "bad indices"})
	})
	c, _ := New(srv.URL)

	_, err := c.Fetch(context.Background(), entity.Point, []int{1})
	if !poierrors.IsTransportFailed(err) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "bad indices") {
		t.Errorf("error %q does not carry server message", got)
	}
}

func TestClient_ShortResponse(t *testing.T) {
	srv := labelServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, loader.Response{Labels: []loader.Label{loader.NewTitled("a")}})
	})
	c, _ := New(srv.URL)

	_, err := c.Fetch(context.Background(), entity.Point, []int{1, 2, 3})
	if !errors.Is(err, poierrors.ErrShortResponse) {
		t.Fatalf("expected short response, got %v", err)
	}
}

func TestClient_MalformedBody(t *testing.T) {
	srv := labelServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not json"))
	})
	c, _ := New(srv.URL)

	_, err := c.Fetch(context.Background(), entity.Point, []int{1})
	if !poierrors.IsTransportFailed(err) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := labelServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c, _ := New(srv.URL, WithTimeout(20*time.Millisecond))
	_, err := c.Fetch(context.Background(), entity.Point, []int{1})
	if !poierrors.IsTransportFailed(err) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "127.0.0.1:8080", "://bad"} {
		if _, err := New(raw); !errors.Is(err, poierrors.ErrInvalidConfig) {
			t.Errorf("New(%q) error = %v, want ErrInvalidConfig", raw, err)
		}
	}
}

func TestFromConfig_Fallback(t *testing.T) {
	primary := labelServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, loader.Response{Error: "down"})
	})
	secondary := labelServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, loader.Response{Labels: []loader.Label{loader.NewTitled("backup")}})
	})

	tr, err := FromConfig(configs.TransportConfig{
		BaseURL:     primary.URL,
		FallbackURL: secondary.URL,
		Timeout:     time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, ok := tr.(*loader.FallbackTransport); !ok {
		t.Fatalf("expected fallback transport, got %T", tr)
	}

	labels, err := tr.Fetch(context.Background(), entity.Point, []int{7})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if *labels[0].Title != "backup" {
		t.Errorf("title = %q, want backup", *labels[0].Title)
	}
}

func TestFromConfig_Single(t *testing.T) {
	tr, err := FromConfig(configs.TransportConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, ok := tr.(*Client); !ok {
		t.Errorf("expected *Client, got %T", tr)
	}
}
