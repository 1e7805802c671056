package hostclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "session=abc", 2*time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSiteStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/site/s-1/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Cookie"); got != "session=abc" {
			t.Errorf("Cookie = %q, want session=abc", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"id":           "s-1",
				"name":         "portfolio",
				"status":       "completed",
				"is_published": true,
				"oss_url":      "/site/s-1/index.html",
			},
		})
	})

	resp, err := c.SiteStatus(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("SiteStatus: %v", err)
	}
	if !resp.Success || resp.Data == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Data.Status != "completed" || !resp.Data.IsPublished || resp.Data.Name != "portfolio" {
		t.Errorf("data = %+v", resp.Data)
	}
	if resp.Data.OSSURL != c.baseURL.String()+"/site/s-1/index.html" {
		t.Errorf("OSSURL = %q, want absolute url", resp.Data.OSSURL)
	}
}

func TestSiteStatusEscapesID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/site/a%2Fb/status" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
	})
	if _, err := c.SiteStatus(context.Background(), "a/b"); err != nil {
		t.Fatalf("SiteStatus: %v", err)
	}
}

func TestSiteStatusTransportErrors(t *testing.T) {
	t.Run("server error without json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		})
		_, err := c.SiteStatus(context.Background(), "s-1")
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Fatalf("err = %v, want ErrUnexpectedStatus", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "{not json")
		})
		if _, err := c.SiteStatus(context.Background(), "s-1"); err == nil {
			t.Fatal("expected decode error")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.SiteStatus(ctx, "s-1"); err == nil {
			t.Fatal("expected error for cancelled context")
		}
	})
}

func TestToggleVisibility(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/toggle_site_visibility/s-2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
			t.Error("missing X-Requested-With header")
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "is_published": false, "msg": "site unpublished"})
	})
	resp, err := c.ToggleVisibility(context.Background(), "s-2")
	if err != nil {
		t.Fatalf("ToggleVisibility: %v", err)
	}
	if !resp.Success || resp.IsPublished || resp.Msg != "site unpublished" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestToggleVisibilityForbiddenKeepsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "msg": "not your site"})
	})
	resp, err := c.ToggleVisibility(context.Background(), "s-2")
	if err != nil {
		t.Fatalf("ToggleVisibility: %v", err)
	}
	if resp.Success || resp.Msg != "not your site" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRenameSite(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rename_site/s-2" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		name := r.PostForm.Get("new_name")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "msg": "renamed", "new_name": name})
	})
	resp, err := c.RenameSite(context.Background(), "s-2", "journal")
	if err != nil {
		t.Fatalf("RenameSite: %v", err)
	}
	if resp.NewName != "journal" {
		t.Errorf("NewName = %q, want journal", resp.NewName)
	}
}

func TestDeleteSite(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/delete_site/s-2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "msg": "deleted"})
	})
	resp, err := c.DeleteSite(context.Background(), "s-2")
	if err != nil {
		t.Fatalf("DeleteSite: %v", err)
	}
	if !resp.Success {
		t.Errorf("resp = %+v", resp)
	}
}

func TestFetchPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "<table></table>")
	})
	body, err := c.FetchPage(context.Background())
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "<table></table>" {
		t.Errorf("body = %q", data)
	}
}
