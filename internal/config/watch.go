package config

import (
	"errors"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ErrNothingToWatch is returned by Watch when no config file exists.
var ErrNothingToWatch = errors.New("no config file to watch")

// Watch reloads the configuration whenever the project config file, or
// the user config file when there is no project file, changes on disk.
// onChange receives the freshly loaded configuration or the load error.
// Watching lasts for the life of the process. Watch returns the watched path.
func Watch(onChange func(*Config, error)) (string, error) {
	path := findProjectConfig()
	if path == "" {
		path = GetUserConfigPath()
	}
	if !fileExists(path) {
		return "", ErrNothingToWatch
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load()
		if err == nil {
			err = Validate(cfg)
		}
		onChange(cfg, err)
	})
	v.WatchConfig()
	return path, nil
}
