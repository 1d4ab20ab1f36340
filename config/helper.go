package config

import (
	"path"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// GetConfigHomeDir returns the full path to the directory that stores the config file.
func GetConfigHomeDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "error finding home directory")
	}
	return path.Join(home, MainDir), nil
}

// GetDefaultConfigFile returns the full path of the default config file.
func GetDefaultConfigFile() (string, error) {
	dir, err := GetConfigHomeDir()
	if err != nil {
		return "", err
	}
	return path.Join(dir, MainFileFullName), nil
}
