package model

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type StateRepository interface {
	// LoadState returns the checkpoint for a session, or nil when none exists
	// or the stored value cannot be decoded.
	LoadState(ctx context.Context, sessionID string) (*State, error)

	// SaveState replaces the checkpoint for state.SessionID
	SaveState(ctx context.Context, state State) error

	// DeleteState removes the checkpoint for a session
	DeleteState(ctx context.Context, sessionID string) error
}

// LeadRegistry is the external side effect invoked once all lead fields are collected.
type LeadRegistry interface {
	RegisterLead(ctx context.Context, lead LeadRecord) (string, error)
}

// SessionLocker serialises turns of the same session.
type SessionLocker interface {
	// Lock blocks until the session is free or ctx is done. The returned func releases it.
	Lock(ctx context.Context, sessionID string) (func(), error)
}

// ChatModel is the subset of an eino chat model the agent calls.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}
