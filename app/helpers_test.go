package app

import (
	"errors"
	"testing"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/config"
)

func TestParsePositiveInt(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := parsePositiveInt("42")
		if err != nil || got != 42 {
			t.Fatalf("parsePositiveInt valid = (%d,%v), want (42,nil)", got, err)
		}
	})
	t.Run("zero", func(t *testing.T) {
		got, err := parsePositiveInt("0")
		if err != nil || got != 0 {
			t.Fatalf("parsePositiveInt zero = (%d,%v), want (0,nil)", got, err)
		}
	})
	t.Run("invalid", func(t *testing.T) {
		for _, s := range []string{"not-an-int", "3x", "-2", ""} {
			if _, err := parsePositiveInt(s); err == nil {
				t.Fatalf("parsePositiveInt(%q) should error", s)
			}
		}
	})
}

func TestErrorDetail(t *testing.T) {
	boom := errors.New("pq: connection refused")

	t.Run("production suppresses detail", func(t *testing.T) {
		t.Setenv("ENV", "production")
		cfg, _ := config.LoadConfig()
		if got := errorDetail(cfg, boom, "something went wrong"); got != "something went wrong" {
			t.Fatalf("errorDetail = %q, want fallback", got)
		}
	})

	t.Run("local keeps detail", func(t *testing.T) {
		t.Setenv("ENV", "local")
		cfg, _ := config.LoadConfig()
		if got := errorDetail(cfg, boom, "something went wrong"); got != boom.Error() {
			t.Fatalf("errorDetail = %q, want %q", got, boom.Error())
		}
	})

	t.Run("nil error returns fallback", func(t *testing.T) {
		t.Setenv("ENV", "local")
		cfg, _ := config.LoadConfig()
		if got := errorDetail(cfg, nil, "fallback"); got != "fallback" {
			t.Fatalf("errorDetail = %q, want fallback", got)
		}
	})
}
