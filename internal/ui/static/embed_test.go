package static

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedAssets(t *testing.T) {
	for _, name := range []string{"css/output.css", "js/app.js"} {
		if _, err := fs.Stat(FS(), name); err != nil {
			t.Errorf("%s не встроен: %v", name, err)
		}
	}
}

func TestAppScriptLeavesRequestsToHTMX(t *testing.T) {
	data, err := fs.ReadFile(FS(), "js/app.js")
	if err != nil {
		t.Fatalf("чтение app.js: %v", err)
	}
	src := string(data)
	if !strings.Contains(src, "htmx:beforeSwap") {
		t.Error("ошибочные ответы должны перенаправляться в уведомления через htmx:beforeSwap")
	}
	if strings.Contains(src, `getAttribute("hx-`) {
		t.Error("app.js не должен сам разбирать hx-атрибуты")
	}
}
