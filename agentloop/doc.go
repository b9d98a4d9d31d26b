// Package agentloop implements the conversation engine of a code-executing
// assistant.
//
// A Session owns the message history. Each call to Chat appends the user's
// message and runs a response cycle: the history and the registered tools
// are sent to a Completer, the reply is appended, and then
//
//   - each tool call in the reply is dispatched through the ToolRegistry and
//     its result appended as a tool message, or
//   - each fenced code block in the reply is run through a CodeRunner and its
//     output appended as a computer message,
//
// after which the model is called again. The cycle ends when the model
// answers in plain text. In loop mode cycles repeat, separated by a continue
// prompt, until a reply contains a breaker phrase or MaxLoopIterations is
// reached.
//
// The first message is always the only system message. It lists every
// registered tool with its schema and is rewritten whenever a tool is
// registered.
//
//	llm := agentloop.NewLLM(client, agentloop.LLMConfig{Provider: "openai", Model: "gpt-4o"}, nil)
//	session := agentloop.NewSession(llm, computer.New(computer.DefaultConfig()), nil)
//	messages, err := session.Chat(ctx, "plot sin(x) from 0 to 2π")
package agentloop
