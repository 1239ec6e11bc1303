package sink

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// WriteReport replaces the result file with the rendered report text.
func WriteReport(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

// JSONLWriter appends one JSON document per probe result, for downstream
// tooling that wants more than the raw links.
type JSONLWriter struct {
	mu   sync.Mutex
	file *os.File
}

func NewJSONL(path string) (*JSONLWriter, error) {
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &JSONLWriter{file: f}, nil
}

func (w *JSONLWriter) Write(r model.ProbeResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.file.Write(append(data, '\n'))
	return err
}

func (w *JSONLWriter) Close() error {
	return w.file.Close()
}
