package agentloop

// Observer receives every assistant, tool and computer message as it is
// appended to the conversation. Calls are synchronous and in append order;
// user and system messages are not reported.
type Observer interface {
	OnMessage(Message)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Message)

// OnMessage calls f(msg).
func (f ObserverFunc) OnMessage(msg Message) { f(msg) }

// Observers fans one message out to several observers in order.
type Observers []Observer

// OnMessage forwards msg to each non-nil observer.
func (o Observers) OnMessage(msg Message) {
	for _, obs := range o {
		if obs != nil {
			obs.OnMessage(msg)
		}
	}
}

// observable reports whether a message of this role is forwarded to observers.
func observable(role Role) bool {
	switch role {
	case RoleAssistant, RoleTool, RoleComputer:
		return true
	}
	return false
}
