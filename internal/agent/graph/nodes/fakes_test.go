package nodes

import (
	"context"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

type fakeChatModel struct {
	mu    sync.Mutex
	calls [][]*schema.Message
	fn    func(ctx context.Context, in []*schema.Message) (*schema.Message, error)
}

func replying(content string) *fakeChatModel {
	return &fakeChatModel{fn: func(context.Context, []*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage(content, nil), nil
	}}
}

func failing(err error) *fakeChatModel {
	return &fakeChatModel{fn: func(context.Context, []*schema.Message) (*schema.Message, error) {
		return nil, err
	}}
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	return f.fn(ctx, in)
}

func (f *fakeChatModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRetriever struct {
	docs  []*schema.Document
	err   error
	calls int
	topK  int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, opts ...retriever.Option) ([]*schema.Document, error) {
	f.calls++
	o := retriever.GetCommonOptions(&retriever.Options{}, opts...)
	if o.TopK != nil {
		f.topK = *o.TopK
	}
	return f.docs, f.err
}

type fakeRegistry struct {
	mu      sync.Mutex
	records []model.LeadRecord
	err     error
}

func (f *fakeRegistry) RegisterLead(_ context.Context, rec model.LeadRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, rec)
	return "lead-123", nil
}

type countingRecorder struct {
	reasons []string
}

func (c *countingRecorder) Fallback(component, reason string) {
	c.reasons = append(c.reasons, component+":"+reason)
}

// stateWith builds a state whose history ends with the given user message.
func stateWith(msg string) model.State {
	return model.Reduce(model.NewState("s-1"), model.Delta{Messages: []*schema.Message{schema.UserMessage(msg)}})
}
