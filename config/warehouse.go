package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	c "github.com/relloyd/engagement/constants"
	"github.com/relloyd/engagement/helper"
)

// WarehouseConfig holds the credentials and targets used to open a warehouse connection.
// It is built explicitly from an environment map and handed to the connection factory.
type WarehouseConfig struct {
	Account   string `mapstructure:"SNOWFLAKE_ACCOUNT" errorTxt:"SNOWFLAKE_ACCOUNT" mandatory:"yes"`
	Database  string `mapstructure:"SNOWFLAKE_LOAD_DATABASE" errorTxt:"SNOWFLAKE_LOAD_DATABASE" mandatory:"yes"`
	Warehouse string `mapstructure:"SNOWFLAKE_LOAD_WAREHOUSE" errorTxt:"SNOWFLAKE_LOAD_WAREHOUSE" mandatory:"yes"`
	User      string `mapstructure:"SNOWFLAKE_LOAD_USER" errorTxt:"SNOWFLAKE_LOAD_USER" mandatory:"yes"`
	Password  string `mapstructure:"SNOWFLAKE_LOAD_PASSWORD" errorTxt:"SNOWFLAKE_LOAD_PASSWORD" mandatory:"yes"`
	Role      string `mapstructure:"-" errorTxt:"warehouse role" mandatory:"yes"`
	Schema    string `mapstructure:"-" errorTxt:"warehouse schema" mandatory:"yes"`
}

// String redacts the password.
func (w WarehouseConfig) String() string {
	return fmt.Sprintf("%v:%v@%v/%v?schema=%v&warehouse=%v&role=%v",
		w.User,
		"xxxxxxx",
		w.Account,
		w.Database,
		w.Schema,
		w.Warehouse,
		w.Role,
	)
}

// LoadWarehouseConfig decodes the warehouse secrets found in env and applies the role and schema.
// An error listing every missing variable is returned if any are unset.
func LoadWarehouseConfig(env map[string]string, role string, schema string) (*WarehouseConfig, error) {
	cfg := &WarehouseConfig{}
	if err := mapstructure.Decode(env, cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode warehouse settings from the environment")
	}
	cfg.Role = role
	cfg.Schema = schema
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, errors.Wrap(err, "incomplete warehouse settings")
	}
	return cfg, nil
}

// LoadLoaderConfig loads the warehouse settings for the loader role against the analytics schema.
func LoadLoaderConfig(env map[string]string) (*WarehouseConfig, error) {
	return LoadWarehouseConfig(env, c.WarehouseRoleLoader, c.WarehouseSchemaAnalytics)
}

// LoadEnvFile reads KEY=value pairs from fileName into the process environment.
// Variables that are already set are not overwritten. A leading ~ is expanded.
func LoadEnvFile(fileName string) error {
	if fileName == "" {
		return nil
	}
	p, err := homedir.Expand(fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to expand env file path %q", fileName)
	}
	if err = godotenv.Load(p); err != nil {
		return errors.Wrapf(err, "unable to load env file %q", p)
	}
	return nil
}
