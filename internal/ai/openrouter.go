package ai

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// openrouter speaks the openai wire format on a different host.
func createOpenRouterFactory(args interface{}) (IAIProvider, error) {
	return newOpenAIProvider("openrouter", args, defaultOpenRouterBaseURL)
}

func createOpenRouterEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newOpenAIEmbedProvider("openrouter", args, defaultOpenRouterBaseURL)
}

func init() {
	Register("openrouter", createOpenRouterFactory)
	RegisterEmbed("openrouter", createOpenRouterEmbedFactory)
}
