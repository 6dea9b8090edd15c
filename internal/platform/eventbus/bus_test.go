package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

type cuePayload struct {
	GameID string `json:"game_id"`
	To     string `json:"to"`
}

func TestBus_PublishJSON_DeliversToSubscriber(t *testing.T) {
	t.Parallel()

	bus := New(logging.NewNop(), 8)
	defer func() {
		_ = bus.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscriber().Subscribe(ctx, TopicGameTransitions)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.PublishJSON(ctx, TopicGameTransitions, cuePayload{GameID: "g1", To: "recalled"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-messages:
		got, err := Decode[cuePayload](msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.GameID != "g1" || got.To != "recalled" {
			t.Fatalf("unexpected payload: %+v", got)
		}
		if middleware.MessageCorrelationID(msg) == "" {
			t.Fatalf("expected correlation id metadata")
		}
		msg.Ack()
	case <-ctx.Done():
		t.Fatalf("timed out waiting for message")
	}
}
