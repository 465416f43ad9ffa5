package llm

import (
	"github.com/mandate-ai/mandate/internal/common"
)

func newTestFactory() *ProviderFactory {
	cfg := common.NewDefaultConfig()
	return NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, common.GetLogger())
}
