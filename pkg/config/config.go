/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"jinr.ru/greenlab/go-rda/pkg/log"
)

type RDAConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	// ReadTimeout of zero blocks forever, which mirrors a persistent
	// amplifier connection.
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty"`
	// SkipUnknown makes unknown message types recoverable.
	SkipUnknown bool `yaml:"skip_unknown"`
	CheckGUID   bool `yaml:"check_guid"`
}

func (c *RDAConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

type DecimationConfig struct {
	Stride int `yaml:"stride"`
	// OutputHz, when positive, replaces Stride with the stride derived from
	// the sampling rate of each start message.
	OutputHz       float64 `yaml:"output_hz"`
	PointsPerBlock int     `yaml:"points_per_block"`
}

type LiveConfig struct {
	// Channels is a channel selection: all, none or a comma separated
	// list of channel names and indexes.
	Channels  string `yaml:"channels"`
	QueueSize int    `yaml:"queue_size"`
}

type SaveConfig struct {
	Channels   string `yaml:"channels"`
	Dir        string `yaml:"dir,omitempty"`
	FilePrefix string `yaml:"file_prefix,omitempty"`
	QueueSize  int    `yaml:"queue_size"`
}

type ApiConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

func (c *ApiConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject"`
}

type SubjectConfig struct {
	Name             string `yaml:"name,omitempty"`
	TrackingNumber   string `yaml:"tracking_number,omitempty"`
	ExperimentNumber string `yaml:"experiment_number,omitempty"`
}

type Config struct {
	LogLevel   string            `yaml:"log_level"`
	DBPath     string            `yaml:"db_path"`
	RDA        *RDAConfig        `yaml:"rda"`
	Decimation *DecimationConfig `yaml:"decimation"`
	Live       *LiveConfig       `yaml:"live"`
	Save       *SaveConfig       `yaml:"save"`
	Api        *ApiConfig        `yaml:"api"`
	NATS       *NATSConfig       `yaml:"nats"`
	Subject    *SubjectConfig    `yaml:"subject"`
	filepath   string
}

// ErrConfigFileExists returned when persisting over an existing config w/o overwrite
type ErrConfigFileExists struct {
	Path string
}

func (e ErrConfigFileExists) Error() string {
	return fmt.Sprintf("Config file already exists: %s", e.Path)
}

// ErrInvalidConfig returned when a config value is out of range
type ErrInvalidConfig struct {
	What string
}

func (e ErrInvalidConfig) Error() string {
	return fmt.Sprintf("Invalid config: %s", e.What)
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file on top of the current values. A missing file
// is not an error, defaults stay in place.
func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if os.IsNotExist(err) {
		log.Debug("Config file not found, using defaults: %s", c.filepath)
		return nil
	}
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.RDA == nil || c.Decimation == nil || c.Live == nil || c.Save == nil || c.Api == nil || c.NATS == nil {
		return ErrInvalidConfig{What: "missing section"}
	}
	if c.RDA.Port <= 0 || c.RDA.Port > 65535 {
		return ErrInvalidConfig{What: fmt.Sprintf("rda port %d", c.RDA.Port)}
	}
	if c.RDA.ReadTimeout < 0 {
		return ErrInvalidConfig{What: "negative rda read_timeout"}
	}
	if c.Decimation.Stride < 1 {
		return ErrInvalidConfig{What: fmt.Sprintf("decimation stride %d", c.Decimation.Stride)}
	}
	if c.Decimation.OutputHz < 0 {
		return ErrInvalidConfig{What: fmt.Sprintf("decimation output_hz %g", c.Decimation.OutputHz)}
	}
	if c.Save.QueueSize < 1 || c.Live.QueueSize < 1 {
		return ErrInvalidConfig{What: "queue size must be positive"}
	}
	return nil
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		DBPath:   DefaultDBPath(),
		RDA: &RDAConfig{
			Address:     DefaultRDAAddress,
			Port:        DefaultRDAPort,
			SkipUnknown: true,
			CheckGUID:   true,
		},
		Decimation: &DecimationConfig{
			Stride:         DefaultStride,
			PointsPerBlock: DefaultPointsPerBlock,
		},
		Live: &LiveConfig{
			Channels:  "all",
			QueueSize: DefaultLiveQueueSize,
		},
		Save: &SaveConfig{
			Channels:  "all",
			QueueSize: DefaultSaveQueueSize,
		},
		Api: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		NATS: &NATSConfig{
			Subject: DefaultNATSSubject,
		},
		Subject:  &SubjectConfig{},
		filepath: DefaultConfigPath(),
	}
}
