package model

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		got := IsRetryableHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestExponentialBackoffCap(t *testing.T) {
	base := 100 * time.Millisecond
	capDur := 700 * time.Millisecond
	if got := ExponentialBackoff(0, base, capDur); got != base {
		t.Fatalf("attempt 0 = %v, want %v", got, base)
	}
	if got := ExponentialBackoff(10, base, capDur); got != capDur {
		t.Fatalf("attempt 10 = %v, want %v", got, capDur)
	}
}

func TestNewClientForcedModeRequiresKey(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, Config{Mode: "gemini"}); err == nil {
		t.Fatalf("gemini mode without key should fail")
	}
	if _, err := NewClient(ctx, Config{Mode: "openai"}); err == nil {
		t.Fatalf("openai mode without key should fail")
	}
	if _, err := NewClient(ctx, Config{Mode: "telepathy"}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}

func TestNewClientAutoFallsBackToMock(t *testing.T) {
	c, err := NewClient(context.Background(), Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewClient(auto) error = %v", err)
	}
	if _, ok := c.(*MockClient); !ok {
		t.Fatalf("auto without keys = %T, want *MockClient", c)
	}
}

func TestMockClientScriptedError(t *testing.T) {
	scripted := errors.New("backend down")
	c := &MockClient{Err: scripted}
	if _, err := c.Generate(context.Background(), "marketing", nil); !errors.Is(err, scripted) {
		t.Fatalf("Generate() error = %v, want scripted error", err)
	}
}
