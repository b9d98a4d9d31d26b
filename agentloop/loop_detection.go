package agentloop

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// callSignature identifies a tool call by name and a short hash of its
// arguments.
func callSignature(call ToolCall) string {
	sum := sha256.Sum256([]byte(call.Function.Arguments))
	return call.Function.Name + ":" + hex.EncodeToString(sum[:8])
}

// recentSignatures returns up to n signatures of the latest tool calls,
// oldest first.
func recentSignatures(history []Message, n int) []string {
	var sigs []string
	for _, msg := range slices.Backward(history) {
		if msg.Role != RoleAssistant {
			continue
		}
		for _, call := range slices.Backward(msg.ToolCalls) {
			if len(sigs) == n {
				break
			}
			sigs = append(sigs, callSignature(call))
		}
		if len(sigs) == n {
			break
		}
	}
	slices.Reverse(sigs)
	return sigs
}

// DetectLoop reports whether the last window tool calls are one pattern of
// one, two or three calls repeated end to end.
func DetectLoop(history []Message, window int) bool {
	if window <= 0 {
		return false
	}
	sigs := recentSignatures(history, window)
	if len(sigs) < window {
		return false
	}
	for period := 1; period <= 3; period++ {
		if window%period == 0 && repeats(sigs, period) {
			return true
		}
	}
	return false
}

func repeats(sigs []string, period int) bool {
	for i := period; i < len(sigs); i++ {
		if sigs[i] != sigs[i-period] {
			return false
		}
	}
	return true
}
