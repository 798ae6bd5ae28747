package testutil

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

func TestMockLLMPatternMatching(t *testing.T) {
	g := genkit.Init(context.Background())
	mock := NewMockLLM("fallback answer")
	mock.AddResponse("weather", "It is sunny.")
	model := mock.RegisterModel(g)

	resp, err := genkit.Generate(context.Background(), g,
		ai.WithModel(model),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart("What is the WEATHER today?"))),
	)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text() != "It is sunny." {
		t.Errorf("response = %q", resp.Text())
	}

	resp, err = genkit.Generate(context.Background(), g,
		ai.WithModel(model),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart("unrelated"))),
	)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text() != "fallback answer" {
		t.Errorf("response = %q", resp.Text())
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].Response != "It is sunny." {
		t.Errorf("first call response = %q", calls[0].Response)
	}
}

func TestMockLLMStreamsInChunks(t *testing.T) {
	g := genkit.Init(context.Background())
	mock := NewMockLLM("twelve chars")
	mock.SetChunkSize(5)
	model := mock.RegisterModel(g)

	var chunks []string
	resp, err := genkit.Generate(context.Background(), g,
		ai.WithModel(model),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart("hi"))),
		ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			for _, part := range chunk.Content {
				chunks = append(chunks, part.Text)
			}
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("chunks = %v, want 3 pieces", chunks)
	}
	if strings.Join(chunks, "") != "twelve chars" {
		t.Errorf("joined = %q", strings.Join(chunks, ""))
	}
	if resp.Text() != "twelve chars" {
		t.Errorf("final text = %q", resp.Text())
	}
}

func TestMockLLMFailWith(t *testing.T) {
	g := genkit.Init(context.Background())
	mock := NewMockLLM("ok")
	model := mock.RegisterModel(g)

	mock.FailWith(errors.New("injected failure"))
	_, err := genkit.Generate(context.Background(), g,
		ai.WithModel(model),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart("hi"))),
	)
	if err == nil {
		t.Fatal("Generate() error = nil, want injected failure")
	}

	mock.FailWith(nil)
	if _, err := genkit.Generate(context.Background(), g,
		ai.WithModel(model),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart("hi"))),
	); err != nil {
		t.Errorf("Generate() after reset error = %v", err)
	}
}
