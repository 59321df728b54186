package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/airenas/transcriber/internal/domain"
)

// artifact is the on-disk shape: exactly text and segments, in that order
type artifact struct {
	Text     string           `json:"text"`
	Segments []domain.Segment `json:"segments"`
}

// Encode renders result as 2-space indented UTF-8 JSON.
// Non-ASCII and HTML characters are kept literally, there is no trailing newline.
func Encode(result *domain.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("no result")
	}
	a := artifact{Text: result.Text, Segments: result.Segments}
	if a.Segments == nil {
		a.Segments = []domain.Segment{}
	}
	b := new(bytes.Buffer)
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return literalSeparators(bytes.TrimSuffix(b.Bytes(), []byte("\n"))), nil
}

// literalSeparators turns the \u2028 and \u2029 escapes encoding/json always
// writes back into the characters
func literalSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	res := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 == len(data) {
			res = append(res, data[i])
			continue
		}
		if i+5 < len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				res = append(res, "\u2028"...)
			} else {
				res = append(res, "\u2029"...)
			}
			i += 5
			continue
		}
		res = append(res, data[i], data[i+1])
		i++
	}
	return res
}

// WriteFile encodes result and replaces the file at path with it.
// The parent directory must exist. On failure the old file is left as is.
// A symlink at path is followed, its target gets the new content.
func WriteFile(path string, result *domain.Result) error {
	data, err := Encode(result)
	if err != nil {
		return err
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return replaceFile(path, data)
}

func replaceFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if tmp != "" {
			_ = os.Remove(tmp)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	tmp = ""
	return nil
}
