package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/config"
)

// parsePositiveInt parses a non-negative integer, rejecting signs and
// trailing garbage.
func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("value must not be negative: %d", n)
	}
	return n, nil
}

// errorDetail returns err's message outside production and the fallback in
// production, so internal detail never leaks to users.
func errorDetail(cfg *config.Config, err error, fallback string) string {
	if cfg == nil || cfg.IsProduction() || err == nil {
		return fallback
	}
	return err.Error()
}
