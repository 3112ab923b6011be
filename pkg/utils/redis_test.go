package utils

import (
	"context"
	"testing"
)

func TestPublishJSON_RequiresClientAndChannel(t *testing.T) {
	if err := PublishJSON(context.Background(), nil, "ch", []byte("{}")); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestSubscribeJSON_RequiresClientAndChannel(t *testing.T) {
	if err := SubscribeJSON(context.Background(), nil, "ch", func([]byte) {}); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
