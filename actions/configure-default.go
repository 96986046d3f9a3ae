package actions

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/relloyd/engagement/config"
)

// DefaultConfig names a flag default stored in the config file, e.g. "log-level" or "fact-table".
type DefaultConfig struct {
	ConfigFile ConfigGetterSetter
	Key        string
	Value      string
	Force      bool
	Out        io.Writer
}

func (cfg *DefaultConfig) out() io.Writer {
	if cfg.Out == nil {
		return os.Stdout
	}
	return cfg.Out
}

func (cfg *DefaultConfig) validate(needValue bool) error {
	if cfg.ConfigFile == nil {
		return errors.New("please supply values for config-file")
	}
	if cfg.Key == "" {
		return errors.New("please supply values for key")
	}
	if needValue && cfg.Value == "" {
		return errors.New("please supply values for value")
	}
	return nil
}

// RunDefaultAdd adds key+value to the given config file.
// If cfg.Force is not set then it return an error when the key exists.
// The config file is created if it does not exist.
func RunDefaultAdd(cfg *DefaultConfig) error {
	if err := cfg.validate(true); err != nil {
		return err
	}
	var val string
	err := cfg.ConfigFile.Get(cfg.Key, &val)
	if err == nil && !cfg.Force { // if key exists and we're not allowed to overwrite...
		return errors.Errorf("key %q exists, use force to update the value or remove it first", cfg.Key)
	}
	if err != nil {
		_, keyNotFound := err.(config.KeyNotFoundError)
		_, fileNotFound := err.(config.FileNotFoundError)
		if !(keyNotFound || fileNotFound) { // if there was an unexpected error...
			return err
		}
	}
	if err = cfg.ConfigFile.Set(cfg.Key, cfg.Value); err != nil {
		return errors.Wrap(err, "error writing config file after adding")
	}
	fmt.Fprintf(cfg.out(), "Key %q added\n", cfg.Key)
	return nil
}

// RunDefaultRemove removes a key from the given config file.
func RunDefaultRemove(cfg *DefaultConfig) error {
	if err := cfg.validate(false); err != nil {
		return err
	}
	if err := cfg.ConfigFile.Delete(cfg.Key); err != nil {
		return errors.Wrapf(err, "unable to delete key %q from config", cfg.Key)
	}
	fmt.Fprintf(cfg.out(), "Key %q removed\n", cfg.Key)
	return nil
}

// RunDefaultList prints each key and value in the config file.
func RunDefaultList(cfg *DefaultConfig) error {
	if cfg.ConfigFile == nil {
		return errors.New("please supply values for config-file")
	}
	keys, err := cfg.ConfigFile.GetAllKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		var v interface{}
		if err = cfg.ConfigFile.Get(k, &v); err != nil {
			return err
		}
		fmt.Fprintf(cfg.out(), "%v: %v\n", k, v)
	}
	return nil
}
