// Package unifiedllm is a provider-neutral completion client.
//
// Providers come in two shapes. A direct provider (ShapeDirect) receives a
// single flattened prompt and returns text; the "local" provider is served
// this way through gollm. A chat provider (ShapeChat) receives structured
// role-tagged messages and may return tool calls; OpenAI, OpenRouter, a
// native Ollama server and Anthropic are served this way.
//
// Client routes each Request to an adapter, runs middleware around it and
// retries chat-shaped calls according to its RetryPolicy. The default policy
// makes three attempts with waits of one and two seconds between them.
//
//	adapter, err := unifiedllm.NewAdapter(unifiedllm.AdapterConfig{Provider: "openai", APIKey: key})
//	if err != nil {
//	    return err
//	}
//	client := unifiedllm.NewClient(unifiedllm.WithProvider(adapter.Name(), adapter))
//	resp, err := client.Complete(ctx, unifiedllm.Request{
//	    Messages: []unifiedllm.Message{unifiedllm.SystemMessage(sys), unifiedllm.UserMessage("hi")},
//	})
//
// Errors are classified into the SDKError hierarchy; IsRetryable reports
// whether the retry loop should try again.
package unifiedllm
