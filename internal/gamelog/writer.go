package gamelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Logger пишет завершенные партии на диск, по файлу на партию.
type Logger struct {
	Dir string
}

func NewLogger(dir string) *Logger {
	// Создаем папку если нет
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		_ = os.MkdirAll(dir, 0755)
	}
	return &Logger{Dir: dir}
}

// Write сохраняет лог и возвращает путь к файлу.
func (l *Logger) Write(gl *Gamelog) (string, error) {
	filename := fmt.Sprintf("%s-%s-%d.json", sanitize(gl.GameName), sanitize(gl.GameSession), gl.Epoch)
	path := filepath.Join(l.Dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating gamelog file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(gl); err != nil {
		return "", fmt.Errorf("encoding gamelog: %w", err)
	}
	return path, nil
}

// Load читает сохраненный лог обратно (для проигрывания реплеев).
func (l *Logger) Load(path string) (*Gamelog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var gl Gamelog
	if err := json.NewDecoder(f).Decode(&gl); err != nil {
		return nil, fmt.Errorf("decoding gamelog: %w", err)
	}
	return &gl, nil
}

// sanitize выкидывает из имени файла все, что может сломать путь.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
