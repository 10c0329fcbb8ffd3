package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/models"
)

func TestChannelPublisher_deliversMessages(t *testing.T) {
	p := NewChannelPublisher(4)
	defer p.Close()

	file := &models.File{Name: "doc.pdf"}
	p.Publish(context.Background(), FileCreated("test", file))

	select {
	case msg := <-p.Messages():
		if msg.Kind != KindFileCreated {
			t.Fatalf("kind = %q", msg.Kind)
		}
		if msg.Scope != "test" {
			t.Fatalf("scope = %q", msg.Scope)
		}
		got, ok := msg.Data.(*models.File)
		if !ok || got.Name != "doc.pdf" {
			t.Fatalf("data = %#v", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
}

func TestChannelPublisher_dropsWhenFull(t *testing.T) {
	p := NewChannelPublisher(1)
	defer p.Close()

	link := &models.Link{Name: "a"}
	p.Publish(context.Background(), LinkCreated("test", link))
	// The buffer is full; this publish must not block.
	done := make(chan struct{})
	go func() {
		p.Publish(context.Background(), LinkCreated("test", link))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full buffer")
	}
}

func TestFactory_selectsSinkPerTenant(t *testing.T) {
	f := NewFactory(nil, zap.NewNop())

	noQueue := &models.Tenant{Name: "a"}
	if _, ok := f.ForTenant(noQueue).(NoopPublisher); !ok {
		t.Fatal("tenant without a queue should get the no-op sink")
	}

	queueURL := "https://sqs.example.com/q"
	withQueue := &models.Tenant{Name: "b", EventQueueURL: &queueURL}
	if _, ok := f.ForTenant(withQueue).(*SQSPublisher); !ok {
		t.Fatal("tenant with a queue should get the SQS sink")
	}
}

// stubSQS records sent bodies and optionally fails.
type stubSQS struct {
	bodies []string
	err    error
}

func (s *stubSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.bodies = append(s.bodies, *params.MessageBody)
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSPublisher_sendsJSONBody(t *testing.T) {
	stub := &stubSQS{}
	p := NewSQSPublisher(stub, "https://sqs.example.com/q", zap.NewNop())

	file := &models.File{Name: "doc.pdf"}
	p.Publish(context.Background(), FileCreated("test", file))

	if len(stub.bodies) != 1 {
		t.Fatalf("sent %d messages, want 1", len(stub.bodies))
	}
	var decoded struct {
		Kind  string `json:"kind"`
		Scope string `json:"scope"`
	}
	if err := json.Unmarshal([]byte(stub.bodies[0]), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Kind != string(KindFileCreated) || decoded.Scope != "test" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestSQSPublisher_swallowsSendFailure(t *testing.T) {
	stub := &stubSQS{err: errors.New("queue unreachable")}
	p := NewSQSPublisher(stub, "https://sqs.example.com/q", zap.NewNop())

	// Publish must not panic or surface the failure.
	p.Publish(context.Background(), FileDeleted("test", &models.File{}))
}

func TestMessageConstructors(t *testing.T) {
	folder := &models.Folder{Name: "f"}
	cases := []struct {
		msg  Message
		kind Kind
	}{
		{FolderCreated("s", folder), KindFolderCreated},
		{FolderUpdated("s", folder), KindFolderUpdated},
		{FolderDeleted("s", folder), KindFolderDeleted},
	}
	for _, tc := range cases {
		if tc.msg.Kind != tc.kind {
			t.Errorf("kind = %q, want %q", tc.msg.Kind, tc.kind)
		}
		if tc.msg.Scope != "s" {
			t.Errorf("scope = %q", tc.msg.Scope)
		}
	}
}
