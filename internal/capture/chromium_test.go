package capture

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOptionsValidation(t *testing.T) {
	err := Screenshot(context.Background(), Options{OutputPath: "x.png"})
	if !errors.Is(err, ErrNoURL) {
		t.Fatalf("expected ErrNoURL, got %v", err)
	}
	err = Screenshot(context.Background(), Options{URL: "http://127.0.0.1/calendar"})
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput, got %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{URL: "http://127.0.0.1/calendar", OutputPath: "x.png"}
	if err := o.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeout {
		t.Fatalf("unexpected defaults: %+v", o)
	}

	o = Options{URL: "u", OutputPath: "p", Width: 1000, Height: 500, Timeout: time.Second}
	_ = o.normalize()
	if o.Width != 1000 || o.Height != 500 || o.Timeout != time.Second {
		t.Fatalf("explicit values overwritten: %+v", o)
	}
}

func TestBasicAuthHeader(t *testing.T) {
	if got := basicAuth("admin", "secret"); got != "Basic YWRtaW46c2VjcmV0" {
		t.Fatalf("basicAuth = %q", got)
	}
}
