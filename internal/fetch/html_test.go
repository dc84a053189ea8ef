package fetch

import (
	"strings"
	"testing"
)

func TestVisibleTextSkipsNonContentNodes(t *testing.T) {
	doc := `<html><head><title>Report</title><script>dead()</script></head>` +
		`<body><noscript>enable js</noscript><p>First sentence.</p>` +
		`<iframe src="x"></iframe><div>Second   sentence.</div></body></html>`

	text, err := VisibleText(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if text != "Report First sentence. Second sentence." {
		t.Errorf("Unexpected visible text: %q", text)
	}
}

func TestVisibleTextEmptyDocument(t *testing.T) {
	text, err := VisibleText(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty text, got %q", text)
	}
}
