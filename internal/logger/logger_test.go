package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextCarriesRoomLogger(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "debug", false)
	defer Discard()

	ctx := NewContext(context.Background(), ForRoom("r1").With("game", "quiz"))
	FromContext(ctx).Debug("quiz loaded")

	out := buf.String()
	if !strings.Contains(out, "room=r1") || !strings.Contains(out, "game=quiz") {
		t.Fatalf("room attrs missing: %q", out)
	}

	buf.Reset()
	FromContext(context.Background()).Info("plain")
	if strings.Contains(buf.String(), "room=") {
		t.Fatalf("bare context should use the default logger: %q", buf.String())
	}
}
