package testsupport

import (
	"context"
	"strings"
	"sync"
)

// FakeExecutor satisfies the scrape Executor interface with canned
// stdout. Responses are matched by substring against the joined
// argument list; the first match wins.
type FakeExecutor struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     [][]string
}

type fakeResponse struct {
	match  string
	stdout []string
	err    error
}

// Respond registers canned stdout lines for invocations whose argument
// list contains match.
func (f *FakeExecutor) Respond(match string, stdout ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{match: match, stdout: stdout})
}

// Fail registers an error for invocations whose argument list contains
// match.
func (f *FakeExecutor) Fail(match string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{match: match, err: err})
}

// Calls returns the argument lists of every invocation so far.
func (f *FakeExecutor) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Run implements the scrape Executor contract.
func (f *FakeExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{binary}, args...))
	joined := strings.Join(args, " ")
	var matched *fakeResponse
	for i := range f.responses {
		if strings.Contains(joined, f.responses[i].match) {
			matched = &f.responses[i]
			break
		}
	}
	f.mu.Unlock()

	if matched == nil {
		return nil
	}
	if matched.err != nil {
		return matched.err
	}
	for _, line := range matched.stdout {
		onStdout(line)
	}
	return nil
}
