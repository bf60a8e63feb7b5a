package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed site
var siteFS embed.FS

// GetFileSystem returns an http.FileSystem for the embedded upload page.
func GetFileSystem() http.FileSystem {
	fsys, err := fs.Sub(siteFS, "site")
	if err != nil {
		panic(err)
	}
	return http.FS(fsys)
}

// IndexHTML returns the upload page.
func IndexHTML() []byte {
	data, err := siteFS.ReadFile("site/index.html")
	if err != nil {
		panic(err)
	}
	return data
}
