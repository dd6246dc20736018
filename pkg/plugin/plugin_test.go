package plugin

import (
	"path/filepath"
	"testing"

	"github.com/suenchunyu/word-frequency/pkg/tokenize"
)

var _ tokenize.Tokenizer = Tokenizer(nil)

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.so")); err == nil {
		t.Errorf("Expected an error loading a missing plugin")
	}
}
