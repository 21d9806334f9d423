// Пакет static — встроенные статические ресурсы Admin UI.
// Содержит CSS, HTMX и скрипт страниц (модальные окна, выгрузки, SSE).
// Файлы встраиваются в бинарник через //go:embed и раздаются через HTTP.
package static

//go:generate curl -sSfL -o js/htmx.min.js https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js

import (
	"embed"
	"io/fs"
	"net/http"
)

// content — встроенная файловая система со всеми статическими ресурсами.
// Включает поддиректории css/ и js/.
//
//go:embed css/*.css js/*.js
var content embed.FS

// FileSystem возвращает http.FileSystem для обработки запросов к /static/*.
// Файлы доступны по путям вида /static/css/output.css, /static/js/htmx.min.js.
func FileSystem() http.FileSystem {
	return http.FS(content)
}

// FS возвращает fs.FS для прямого доступа к встроенным файлам.
func FS() fs.FS {
	return content
}
