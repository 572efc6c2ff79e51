// Package migrate applies a planned change set against a live database
// with bounded concurrency, respecting each statement's dependency
// edges, and writes every applied statement to a numbered
// schema-output directory for the external migration planner to
// consume. The directory-writing half is grounded in the teacher's
// sql/migrate.LocalDir/Dir/File/Formatter (numbered files, WriteFile,
// Checksum); the apply half generalizes the teacher's single-threaded
// sql/internal/sqlx.ApplyChanges loop into a dependency-respecting
// worker pool, since spec.md §4.H requires disjoint-dependency
// statements to run concurrently rather than strictly in plan order.
package migrate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nanopg/nanopg/sql/diff"
	"github.com/nanopg/nanopg/sql/internal/nanoerr"
	"github.com/nanopg/nanopg/sql/pgwire"
	"github.com/nanopg/nanopg/sql/sqlparse"
)

// Task is one statement's planned change paired with the dependency
// set it must await before applying.
type Task struct {
	Statement *sqlparse.Statement
	Change    diff.Change
}

// Driver applies a Task graph against a pgwire.Conn (or, when
// Concurrency > 1, a pgwire.Pool so independent statements get their
// own connection rather than serializing on one socket).
type Driver struct {
	Conn        *pgwire.Conn
	Pool        *pgwire.Pool
	Concurrency int
}

// Result is one applied task's outcome.
type Result struct {
	ID    string
	Error error
}

// Apply runs tasks with bounded concurrency: each task awaits a
// one-shot readiness channel per dependency before applying its own
// SQL, then closes its own readiness channel so dependents can
// proceed. Errors on one task do not abort siblings with no
// dependency on it, but do propagate to any waiting dependent.
func (d *Driver) Apply(ctx context.Context, tasks []Task) ([]Result, error) {
	ready := make(map[string]chan struct{}, len(tasks))
	byKey := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		key := t.Statement.ID.String()
		ready[key] = make(chan struct{})
		byKey[key] = t
	}

	results := make([]Result, len(tasks))
	var mu sync.Mutex
	errs := map[string]error{}

	concurrency := d.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, t := range tasks {
		i, t := i, t
		key := t.Statement.ID.String()
		g.Go(func() error {
			defer close(ready[key])
			for _, dep := range t.Statement.DepsOut {
				depKey := dep.String()
				ch, ok := ready[depKey]
				if !ok {
					continue
				}
				select {
				case <-ch:
				case <-gctx.Done():
					return gctx.Err()
				}
				mu.Lock()
				depErr := errs[depKey]
				mu.Unlock()
				if depErr != nil {
					err := fmt.Errorf("skipped: dependency %s failed: %w", depKey, depErr)
					mu.Lock()
					errs[key] = err
					mu.Unlock()
					results[i] = Result{ID: key, Error: err}
					return nil
				}
			}

			conn, release, err := d.acquire(gctx)
			if err != nil {
				mu.Lock()
				errs[key] = err
				mu.Unlock()
				results[i] = Result{ID: key, Error: err}
				return nil
			}
			defer release()

			applyErr := applyChange(gctx, conn, t.Change)
			if applyErr != nil {
				applyErr = formatFailure(t.Statement, applyErr)
			}
			mu.Lock()
			errs[key] = applyErr
			mu.Unlock()
			results[i] = Result{ID: key, Error: applyErr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Driver) acquire(ctx context.Context) (*pgwire.Conn, func(), error) {
	if d.Pool != nil {
		conn, err := d.Pool.Checkout(ctx, nil)
		if err != nil {
			return nil, nil, err
		}
		return conn, func() { d.Pool.Return(conn) }, nil
	}
	return d.Conn, func() {}, nil
}

func applyChange(ctx context.Context, conn *pgwire.Conn, c diff.Change) error {
	for _, stmt := range c.SQL {
		h := conn.Query(ctx, pgwire.Void, stmt, pgwire.QueryOptions{})
		if _, err := h.Wait(); err != nil {
			return err
		}
	}
	return nil
}

var (
	reErrorPrefix = regexp.MustCompile(`(?i)^ERROR:\s*`)
	reLinePrefix  = regexp.MustCompile(`(?i)^LINE \d+:\s*`)
)

// formatFailure builds the message spec.md §4.H specifies: object kind
// + qualified name + server message (ERROR:/LINE N: prefixes removed)
// + a file:line frame from the statement's own source position.
func formatFailure(s *sqlparse.Statement, cause error) error {
	msg := cause.Error()
	var ne *nanoerr.Error
	if nanoerr.As(cause, &ne) {
		msg = ne.Message
	}
	msg = reErrorPrefix.ReplaceAllString(msg, "")
	msg = reLinePrefix.ReplaceAllString(strings.TrimSpace(msg), "")
	text := fmt.Sprintf("%s %s (%s:%d): %s", s.Kind, s.ID, s.SourceFile, s.SourceLine, msg)
	if ne != nil {
		// The server message is already in text with its prefixes removed;
		// wrapping ne would print it again, prefixes included.
		return nanoerr.New(nanoerr.CodeApply, text)
	}
	return nanoerr.Wrap(nanoerr.CodeApply, text, cause)
}
