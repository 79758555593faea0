package conf

import (
	"veil/internal/flog"
)

type Log struct {
	LevelName string `yaml:"level"`
}

// Level falls back to info for names that do not validate.
func (l *Log) Level() flog.Level {
	level, _ := flog.ParseLevel(l.LevelName)
	return level
}

func (l *Log) setDefaults() {
	if l.LevelName == "" {
		l.LevelName = "info"
	}
}

func (l *Log) validate() []error {
	var errors []error

	if _, err := flog.ParseLevel(l.LevelName); err != nil {
		errors = append(errors, err)
	}

	return errors
}
