package ai

import "context"

// Prompt 一次文字生成請求
type Prompt struct {
	System string
	User   string
	Stop   []string // 停止條件，可為空
}

// TextGenerator 文字生成能力，失敗以 error 回傳而不會中斷對話
type TextGenerator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GeneratorFunc 讓一般函式實作 TextGenerator
type GeneratorFunc func(ctx context.Context, p Prompt) (string, error)

// Generate 呼叫函式本身
func (f GeneratorFunc) Generate(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}
