package repl

import (
	"bytes"
	"context"

	"github.com/viant/afs"
)

// writeFile and readFile back :save/:load with the afs storage abstraction,
// so a session archive can live behind any scheme the service resolves
// (plain paths, file://, mem:// in tests).
func writeFile(path string, data []byte) error {
	return afs.New().Upload(context.Background(), path, 0o644, bytes.NewReader(data))
}

func readFile(path string) ([]byte, error) {
	return afs.New().DownloadWithURL(context.Background(), path)
}
