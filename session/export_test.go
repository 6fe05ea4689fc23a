package session

import "context"

// CachedStatements returns the number of statements cached by |s|.
func CachedStatements(s *Session) (n int) {
	_ = s.do(context.Background(), "test", func(context.Context) error {
		n = s.cache.len()
		return nil
	})
	return n
}

// ObserverCount returns the number of observers registered with |s|, and
// whether change hooks are installed.
func ObserverCount(s *Session) (n int, hooked bool) {
	_ = s.do(context.Background(), "test", func(context.Context) error {
		n, hooked = len(s.monitor.observers), s.monitor.hooked
		return nil
	})
	return n, hooked
}
