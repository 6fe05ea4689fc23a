// Package session implements a concurrency-safe Session over a single SQLite
// connection, with support for live queries.
//
// Every use of the connection is serialized onto a worker goroutine owned by
// the Session. Callers on other goroutines block until the worker completes
// their operation. InTransaction blocks receive a Context which marks them as
// running on the worker, and operations invoked with that Context run inline:
//
//	err = s.InTransaction(ctx, func(ctx context.Context) error {
//		if err := s.Write(ctx, "INSERT INTO users (name) VALUES (:name)",
//			session.Args{"name": session.TextValue("ada")}); err != nil {
//			return err
//		}
//		return s.InTransaction(ctx, func(ctx context.Context) error {
//			// Nested: a failure here rolls back only this block.
//			return s.Write(ctx, "UPDATE counts SET n = n + 1", nil)
//		})
//	})
//
// Statements passed to Write and Read are compiled once and cached for
// re-use. Statement arguments are bound by name: Args keys are placeholder
// names without their ":", "@" or "$" sigil.
//
// Observe registers a live query. The tables the query reads are determined
// exactly while it's compiled, and once a transaction which changed any of
// them commits, the query is re-evaluated and its fresh result is delivered
// to the observer's async.Queue. Changes of transactions which roll back,
// or of savepoints which are rolled back to, are never delivered.
package session
