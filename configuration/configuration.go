package configuration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/notepay/notepay/chainclient"
	"github.com/notepay/notepay/dashboardapi"
	"github.com/notepay/notepay/fileoperations"
	"github.com/notepay/notepay/notifier"
	"github.com/notepay/notepay/pinclient"
	"github.com/notepay/notepay/reminders"
	"github.com/notepay/notepay/storeclient"
	"github.com/notepay/notepay/storepostgres"
	"github.com/notepay/notepay/zincadapter"
)

// Configuration is the main configuration of the application that corresponds to the *.yaml file
// that holds the configuration.
type Configuration struct {
	API          dashboardapi.Config   `yaml:"api"`
	Store        storeclient.Config    `yaml:"store"`
	StoreDB      storepostgres.Config  `yaml:"store_db"`
	Pinner       pinclient.Config      `yaml:"pinner"`
	Chain        chainclient.Config    `yaml:"chain"`
	Reminders    reminders.Config      `yaml:"reminders"`
	FileOperator fileoperations.Config `yaml:"file_operator"`
	Nats         notifier.Config       `yaml:"nats"`
	ZincLogger   zincadapter.Config    `yaml:"zinc_logger"`
	Telemetry    TelemetryConfig       `yaml:"telemetry"`
}

// TelemetryConfig sets up the prometheus metrics endpoint.
type TelemetryConfig struct {
	Port int `yaml:"port"`
}

// Read reads the configuration from the file and returns the Configuration with set fields according to the yaml setup.
func Read(path string) (Configuration, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, err
	}

	var main Configuration
	err = yaml.Unmarshal(buf, &main)
	if err != nil {
		return Configuration{}, fmt.Errorf("in file %q: %w", path, err)
	}

	return main, err
}
