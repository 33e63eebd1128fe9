package zipstream_test

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/martin-sucha/zipstream"
)

// Example streams every regular file under the current directory into a
// ZIP archive written straight to a destination writer, one entry at a
// time, without ever buffering the whole archive or seeking backward.
func Example() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	out, err := os.CreateTemp("", "example-*.zip")
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	zw := zipstream.NewWriter(out)

	err = filepath.WalkDir(cwd, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == cwd {
			return err
		}
		rel, err := filepath.Rel(cwd, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return zw.AppendDirectory(zipstream.EntryHeader{Name: rel, Modified: info.ModTime()})
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return zw.AppendEntry(zipstream.EntryHeader{
			Name:     rel,
			Method:   zipstream.Deflate,
			Level:    zipstream.DefaultLevel,
			Modified: info.ModTime(),
			Mode:     info.Mode(),
		}, f)
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := zw.Finalize(); err != nil {
		log.Fatal(err)
	}
}
