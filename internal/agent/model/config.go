package model

import "time"

// ================ Config ================
type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"16"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.7"`
}

type EmbeddingConfig struct {
	Provider   string `envconfig:"EMBEDDING_PROVIDER" default:"gemini"`
	Model      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	Dimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"256"`
}

type AgentConfig struct {
	MaxHops          int           `envconfig:"AGENT_MAX_HOPS" default:"8"`
	LLMTimeout       time.Duration `envconfig:"AGENT_LLM_TIMEOUT" default:"10s"`
	RetrievalTimeout time.Duration `envconfig:"AGENT_RETRIEVAL_TIMEOUT" default:"5s"`
	ToolTimeout      time.Duration `envconfig:"AGENT_TOOL_TIMEOUT" default:"10s"`
	RetrievalTopK    int           `envconfig:"AGENT_RETRIEVAL_TOP_K" default:"3"`
	MinAnswerLength  int           `envconfig:"AGENT_MIN_ANSWER_LENGTH" default:"20"`
	HistoryTurns     int           `envconfig:"AGENT_HISTORY_TURNS" default:"6"`
	GreetingMaxWords int           `envconfig:"AGENT_GREETING_MAX_WORDS" default:"10"`
}

// DefaultSessionCapacity bounds the in-memory session store.
const DefaultSessionCapacity = 10000

// SessionConfig holds the checkpoint store settings. LockTTL is the lease of a
// distributed session lock; zero derives it from the agent timeouts.
type SessionConfig struct {
	Store          string        `envconfig:"STATE_STORE" default:"memory"`
	TTL            time.Duration `envconfig:"SESSION_TTL" default:"0"`
	LockTimeout    time.Duration `envconfig:"SESSION_LOCK_TIMEOUT" default:"15s"`
	LockTTL        time.Duration `envconfig:"SESSION_LOCK_TTL" default:"0"`
	MemoryCapacity int           `envconfig:"SESSION_MEMORY_CAPACITY" default:"10000"`
}

// minLockTTL is the floor for a derived session lock lease.
const minLockTTL = 30 * time.Second

// TurnBudget is the longest a single turn can spend in external calls: the
// classifier and response models, retrieval and the lead tool.
func (c AgentConfig) TurnBudget() time.Duration {
	c = c.WithDefaults()
	return 2*c.LLMTimeout + c.RetrievalTimeout + c.ToolTimeout
}

// LockLease returns LockTTL when set, otherwise twice the agent's turn budget
// and never less than 30s. A lease shorter than a turn would let two turns of
// one session overlap.
func (c SessionConfig) LockLease(agent AgentConfig) time.Duration {
	if c.LockTTL > 0 {
		return c.LockTTL
	}
	return max(minLockTTL, 2*agent.TurnBudget())
}

type LeadStoreConfig struct {
	DBPath     string `envconfig:"LEADS_DB_PATH" default:"./data/leads.db"`
	MaxRetries int    `envconfig:"LEADS_MAX_RETRIES" default:"3"`
}

type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8000"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// DefaultAgentConfig mirrors the envconfig defaults for callers that build the agent in code.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxHops:          8,
		LLMTimeout:       10 * time.Second,
		RetrievalTimeout: 5 * time.Second,
		ToolTimeout:      10 * time.Second,
		RetrievalTopK:    3,
		MinAnswerLength:  20,
		HistoryTurns:     6,
		GreetingMaxWords: 10,
	}
}

// WithDefaults fills zero values from DefaultAgentConfig.
func (c AgentConfig) WithDefaults() AgentConfig {
	d := DefaultAgentConfig()
	if c.MaxHops <= 0 {
		c.MaxHops = d.MaxHops
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = d.LLMTimeout
	}
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = d.RetrievalTimeout
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = d.ToolTimeout
	}
	if c.RetrievalTopK <= 0 {
		c.RetrievalTopK = d.RetrievalTopK
	}
	if c.MinAnswerLength <= 0 {
		c.MinAnswerLength = d.MinAnswerLength
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = d.HistoryTurns
	}
	if c.GreetingMaxWords <= 0 {
		c.GreetingMaxWords = d.GreetingMaxWords
	}
	return c
}
