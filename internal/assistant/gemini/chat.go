package gemini

import (
	"context"
	"strings"
	"sync"

	"storefront/internal/assistant"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// Chat диалог с историей на стороне клиента. Незавершённый ход удаляется из истории при ошибке.
type Chat struct {
	client *Client
	system *Content
	tools  []Tool
	gen    *GenerationConfig

	mu        sync.Mutex
	history   []Content
	turnStart int
}

// NewChat реализует assistant.Model
func (c *Client) NewChat(cfg assistant.ChatConfig) assistant.Chat {
	ch := &Chat{
		client: c,
		gen:    &GenerationConfig{Temperature: cfg.Temperature},
	}
	if s := strings.TrimSpace(cfg.SystemInstruction); s != "" {
		ch.system = &Content{Parts: []Part{{Text: s}}}
	}
	if len(cfg.Functions) > 0 {
		decls := make([]FunctionDeclaration, 0, len(cfg.Functions))
		for _, f := range cfg.Functions {
			decls = append(decls, FunctionDeclaration{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  convertSchema(f.Parameters),
			})
		}
		ch.tools = []Tool{{FunctionDeclarations: decls}}
	}
	return ch
}

func convertSchema(s *assistant.Schema) *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{Type: s.Type, Description: s.Description, Required: s.Required}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = *convertSchema(&prop)
		}
	}
	return out
}

// History копия истории
func (ch *Chat) History() []Content {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]Content, len(ch.history))
	copy(out, ch.history)
	return out
}

func (ch *Chat) Send(ctx context.Context, text string) (*assistant.Response, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	// a turn that stopped on unanswered calls cannot be continued
	if n := len(ch.history); n > 0 && hasCalls(ch.history[n-1]) {
		ch.history = ch.history[:ch.turnStart]
	}
	ch.turnStart = len(ch.history)
	ch.history = append(ch.history, Content{Role: roleUser, Parts: []Part{{Text: text}}})
	return ch.generate(ctx)
}

func (ch *Chat) SendResults(ctx context.Context, results []assistant.FunctionResult) (*assistant.Response, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	parts := make([]Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, Part{FunctionResponse: &FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: map[string]any{"result": r.Result},
		}})
	}
	ch.history = append(ch.history, Content{Role: roleUser, Parts: parts})
	return ch.generate(ctx)
}

// generate caller holds ch.mu
func (ch *Chat) generate(ctx context.Context) (*assistant.Response, error) {
	req := &GenerateRequest{
		Contents:          ch.history,
		SystemInstruction: ch.system,
		Tools:             ch.tools,
		GenerationConfig:  ch.gen,
	}
	resp, err := ch.client.Generate(ctx, req)
	if err != nil {
		ch.history = ch.history[:ch.turnStart]
		return nil, err
	}

	content := resp.Candidates[0].Content
	content.Role = roleModel
	ch.history = append(ch.history, content)

	out := &assistant.Response{}
	var text strings.Builder
	for _, p := range content.Parts {
		if p.FunctionCall != nil {
			out.Calls = append(out.Calls, assistant.FunctionCall{
				ID:   p.FunctionCall.ID,
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			})
			continue
		}
		text.WriteString(p.Text)
	}
	out.Text = text.String()
	return out, nil
}

func hasCalls(c Content) bool {
	if c.Role != roleModel {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionCall != nil {
			return true
		}
	}
	return false
}
