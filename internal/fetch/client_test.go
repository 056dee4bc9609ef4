package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetBytes(t *testing.T) {
	t.Parallel()

	t.Run("returns body on success", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("hello"))
		}))
		defer srv.Close()

		c := New(WithBaseURL(srv.URL), WithDelay(0), WithSleeper(func(time.Duration) {}))
		body, err := c.GetBytes(context.Background(), srv.URL+"/page")
		if err != nil {
			t.Fatalf("GetBytes failed: %v", err)
		}
		if string(body) != "hello" {
			t.Errorf("unexpected body %q", body)
		}
	})

	t.Run("non-success status is returned as-is", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Error 404")) // the archive renders deletions as pages
		}))
		defer srv.Close()

		c := New(WithBaseURL(srv.URL), WithDelay(0), WithSleeper(func(time.Duration) {}))
		body, err := c.GetBytes(context.Background(), srv.URL+"/works/1")
		if err != nil {
			t.Fatalf("a 404 must not be an error at the fetch layer: %v", err)
		}
		if string(body) != "Error 404" {
			t.Errorf("unexpected body %q", body)
		}
	})
}

func TestRateLimitRetry(t *testing.T) {
	t.Parallel()

	t.Run("one cooldown then success", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte("released"))
		}))
		defer srv.Close()

		var slept []time.Duration
		c := New(
			WithBaseURL(srv.URL),
			WithDelay(0),
			WithCooldown(300*time.Second),
			WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		)

		body, err := c.GetBytes(context.Background(), srv.URL+"/works/1")
		if err != nil {
			t.Fatalf("GetBytes failed: %v", err)
		}
		if string(body) != "released" {
			t.Errorf("caller observed %q, want the successful response", body)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 requests, got %d", calls.Load())
		}
		if len(slept) != 1 || slept[0] != 300*time.Second {
			t.Errorf("expected exactly one 300s cooldown, got %v", slept)
		}
	})

	t.Run("cancellation breaks the retry loop", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		c := New(
			WithBaseURL(srv.URL),
			WithDelay(0),
			WithSleeper(func(time.Duration) { cancel() }),
		)

		if _, err := c.GetBytes(ctx, srv.URL+"/works/1"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestPolitenessDelay(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	t.Run("applies to the target domain", func(t *testing.T) {
		t.Parallel()

		var slept []time.Duration
		c := New(
			WithBaseURL(srv.URL),
			WithDelay(time.Second),
			WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		)

		if _, err := c.GetBytes(context.Background(), srv.URL+"/works/1"); err != nil {
			t.Fatalf("GetBytes failed: %v", err)
		}
		if len(slept) != 1 || slept[0] != time.Second {
			t.Errorf("expected one politeness delay, got %v", slept)
		}
	})

	t.Run("skipped for third-party asset hosts", func(t *testing.T) {
		t.Parallel()

		asset := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("png"))
		}))
		defer asset.Close()

		var slept []time.Duration
		c := New(
			WithBaseURL(srv.URL),
			WithDelay(time.Second),
			WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		)

		if _, err := c.GetBytes(context.Background(), asset.URL+"/image.png"); err != nil {
			t.Fatalf("GetBytes failed: %v", err)
		}
		if len(slept) != 0 {
			t.Errorf("no delay expected off-domain, got %v", slept)
		}
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	loginForm := `<html><body><form class="new_user">
		<input name="authenticity_token" value="tok123">
	</form></body></html>`

	t.Run("successful login posts the token", func(t *testing.T) {
		t.Parallel()

		var postedToken string
		mux := http.NewServeMux()
		mux.HandleFunc("/users/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				_ = r.ParseForm()
				postedToken = r.PostFormValue("authenticity_token")
				_, _ = w.Write([]byte(`<html><body>Hi, reader!</body></html>`))
				return
			}
			_, _ = w.Write([]byte(loginForm))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c := New(WithBaseURL(srv.URL), WithDelay(0), WithSleeper(func(time.Duration) {}))
		if err := c.Login(context.Background(), "reader", "hunter2"); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if postedToken != "tok123" {
			t.Errorf("expected authenticity token forwarded, got %q", postedToken)
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/users/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				_, _ = w.Write([]byte(`<html><body>The password or user name you entered doesn't match our records.</body></html>`))
				return
			}
			_, _ = w.Write([]byte(loginForm))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c := New(WithBaseURL(srv.URL), WithDelay(0), WithSleeper(func(time.Duration) {}))
		if err := c.Login(context.Background(), "reader", "wrong"); !errors.Is(err, ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
	})

	t.Run("missing login form", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html><body>maintenance</body></html>`))
		}))
		defer srv.Close()

		c := New(WithBaseURL(srv.URL), WithDelay(0), WithSleeper(func(time.Duration) {}))
		if err := c.Login(context.Background(), "reader", "hunter2"); !errors.Is(err, ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
	})
}
