package supervisor

import "strings"

const tokenChildPrefix = "nova-token-"

// deactivateChildByAgentName stops and forgets the TokenChild identified
// by its heartbeat agent name, as reported by Health's staleness sweep.
func (s *Supervisor) deactivateChildByAgentName(agentName string) {
	mint := strings.TrimPrefix(agentName, tokenChildPrefix)
	if mint == agentName || mint == "" {
		return
	}

	s.mu.Lock()
	stop, ok := s.children[mint]
	if ok {
		delete(s.children, mint)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	s.Logger.Info("deactivating stale token child", "mint", mint, "agentName", agentName)
	stop()
}
