package telemetry_test

import (
	"context"
	"testing"

	"podcaster/internal/config"
	"podcaster/internal/telemetry"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := telemetry.Init(context.Background(), config.Telemetry{ServiceName: "podcaster"}, "test")
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}

	counter, err := telemetry.Meter("podcaster/test").Int64Counter("test.count")
	if err != nil {
		t.Fatalf("Int64Counter: %v", err)
	}
	counter.Add(context.Background(), 1)

	_, span := telemetry.Tracer("podcaster/test").Start(context.Background(), "noop")
	span.End()
}
