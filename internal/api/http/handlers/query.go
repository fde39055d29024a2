package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// queryValue returns the first non-empty query parameter among names.
func queryValue(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.Query(name)); v != "" {
			return v
		}
	}
	return ""
}

func queryInt(c *fiber.Ctx, names ...string) (int, error) {
	raw := queryValue(c, names...)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid integer", map[string]any{"param": names[0], "value": raw})
	}
	return v, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func queryTime(c *fiber.Ctx, endOfDay bool, names ...string) (*time.Time, error) {
	raw := queryValue(c, names...)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid timestamp", map[string]any{"param": names[0], "value": raw})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// queryList splits comma-separated values.
func queryList(c *fiber.Ctx, names ...string) []string {
	raw := queryValue(c, names...)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseEnumList[T any](c *fiber.Ctx, parse func(string) (T, bool), names ...string) ([]T, error) {
	values := queryList(c, names...)
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]T, 0, len(values))
	for _, raw := range values {
		v, ok := parse(raw)
		if !ok {
			return nil, apperrors.NewValidationError("invalid filter value", map[string]any{"param": names[0], "value": raw})
		}
		out = append(out, v)
	}
	return out, nil
}
