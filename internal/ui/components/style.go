package components

import (
	"context"
	"io"
	"regexp"

	"github.com/a-h/templ"
)

var primaryColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// PrimaryColorStyle переопределяет CSS-переменную --primary цветом
// брендинга. Значение не в формате #RRGGBB не выводится.
func PrimaryColorStyle(color string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !primaryColorRe.MatchString(color) {
			return nil
		}
		_, err := io.WriteString(w, "<style>:root { --primary: "+color+"; }</style>")
		return err
	})
}
