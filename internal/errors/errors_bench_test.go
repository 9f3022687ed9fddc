package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func BenchmarkErrorCollector_Add(b *testing.B) {
	collector := NewErrorCollector()
	cause := stderrors.New("no such file")

	b.ResetTimer()
	for i := range b.N {
		collector.Add(fmt.Sprintf("pages/page%d.html", i%1000), NewTransportError("layouts/base.html", cause))
	}
}

func BenchmarkErrorCollector_Summary(b *testing.B) {
	collector := NewErrorCollector()
	for i := range 1000 {
		collector.Add(fmt.Sprintf("pages/page%d.html", i),
			NewParseReferenceError(ErrCodeUnknownPartial, fmt.Sprintf("pages/page%d.html", i), "footer", "template \"footer\" is not defined"))
	}

	b.ResetTimer()
	for range b.N {
		_ = collector.Summary()
	}
}

func BenchmarkError_String(b *testing.B) {
	err := NewDependencyError(ErrCodeModuleFailed, "pages/home.html", "json!data/site.json",
		NewTransportError("data/site.json", stderrors.New("connection refused")))

	b.ResetTimer()
	for range b.N {
		_ = err.Error()
	}
}

func BenchmarkCodeOf_Wrapped(b *testing.B) {
	err := fmt.Errorf("render: %w", fmt.Errorf("resolve: %w",
		NewParseReferenceError(ErrCodeUnknownAlias, "a.html", "nav", "undefined alias")))

	b.ResetTimer()
	for range b.N {
		_ = CodeOf(err)
	}
}
