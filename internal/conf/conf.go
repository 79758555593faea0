package conf

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

type Conf struct {
	Log      Log      `yaml:"log"`
	Security Security `yaml:"security"`
	Engine   Engine   `yaml:"engine"`
	PCAP     PCAP     `yaml:"pcap"`
}

func LoadFromFile(path string) (*Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func Load(data []byte) (*Conf, error) {
	var conf Conf

	if err := yaml.UnmarshalWithOptions(data, &conf, yaml.Strict()); err != nil {
		return &conf, err
	}

	conf.setDefaults()
	if err := conf.validate(); err != nil {
		return &conf, err
	}

	return &conf, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty.
func LoadOrDefault(path string) (*Conf, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFromFile(path)
}

// Default is the configuration used when no file is given.
func Default() *Conf {
	var conf Conf
	conf.setDefaults()
	return &conf
}

func (c *Conf) setDefaults() {
	c.Log.setDefaults()
	c.Security.setDefaults()
	c.Engine.setDefaults()
	c.PCAP.setDefaults()
}

func (c *Conf) validate() error {
	var allErrors []error

	allErrors = append(allErrors, c.Log.validate()...)
	allErrors = append(allErrors, c.Security.validate()...)
	allErrors = append(allErrors, c.Engine.validate()...)
	allErrors = append(allErrors, c.PCAP.validate()...)

	return writeErr(allErrors)
}

func writeErr(allErrors []error) error {
	if len(allErrors) > 0 {
		var messages []string
		for _, err := range allErrors {
			messages = append(messages, err.Error())
		}
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}
	return nil
}
