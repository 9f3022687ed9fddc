package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrorCollector collects failures from independent units of work, such as
// the files of one build, so a single bad file does not hide the others.
type ErrorCollector struct {
	errors map[string]error
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make(map[string]error),
	}
}

// Add records err for the given file id. A nil error is ignored.
func (ec *ErrorCollector) Add(file string, err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors[file] = err
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Files returns the ids with a recorded error, sorted.
func (ec *ErrorCollector) Files() []string {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	files := make([]string, 0, len(ec.errors))
	for file := range ec.errors {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// Get returns the error recorded for file.
func (ec *ErrorCollector) Get(file string) error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return ec.errors[file]
}

// Err joins all recorded errors in file order, or returns nil.
func (ec *ErrorCollector) Err() error {
	files := ec.Files()
	if len(files) == 0 {
		return nil
	}
	errs := make([]error, 0, len(files))
	for _, file := range files {
		errs = append(errs, ec.Get(file))
	}
	return errors.Join(errs...)
}

// Summary formats one line per failing file.
func (ec *ErrorCollector) Summary() string {
	var b strings.Builder
	for _, file := range ec.Files() {
		fmt.Fprintf(&b, "%s: %v\n", file, ec.Get(file))
	}
	return b.String()
}
