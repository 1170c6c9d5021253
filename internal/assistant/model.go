package assistant

import "context"

// Schema types understood by the hosted model
const (
	TypeObject  = "OBJECT"
	TypeString  = "STRING"
	TypeBoolean = "BOOLEAN"
)

// Schema описание параметров объявленного действия
type Schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]Schema `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
}

// FunctionDeclaration действие, которое модель может вызвать
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// FunctionCall запрос модели на выполнение действия
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]any
}

// FunctionResult текстовый результат действия, возвращаемый модели
type FunctionResult struct {
	ID     string
	Name   string
	Result string
}

// Response ответ модели: текст и/или запрошенные действия
type Response struct {
	Text  string
	Calls []FunctionCall
}

// ChatConfig параметры сессии диалога
type ChatConfig struct {
	SystemInstruction string
	Temperature       float32
	Functions         []FunctionDeclaration
}

// Model фабрика диалогов с размещённой моделью
type Model interface {
	NewChat(cfg ChatConfig) Chat
}

// Chat долгоживущий диалог. Контекст беседы хранит реализация.
type Chat interface {
	Send(ctx context.Context, text string) (*Response, error)
	SendResults(ctx context.Context, results []FunctionResult) (*Response, error)
}
