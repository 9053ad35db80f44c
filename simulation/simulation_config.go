// Copyright (c) 2025, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package simulation

import (
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/tsch-ns/app"
	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/radiomodel"
	"github.com/openthread/tsch-ns/rpl"
	"github.com/openthread/tsch-ns/sf"
	"github.com/openthread/tsch-ns/sixp"
	"github.com/openthread/tsch-ns/tsch"
)

const EnvPrefix = "TSCHNS_"

type Config struct {
	Seed     int64  `yaml:"seed"` // 0 picks a time based seed
	LogLevel string `yaml:"logLevel"`
	// MaxDataPktsThroughSharedCell is the number of DATA frames a parent may receive from a child with
	// which it shares no dedicated cell before the child gives up on that parent. 0 disables the check.
	MaxDataPktsThroughSharedCell int `yaml:"maxDataPktsThroughSharedCell"`

	Dispatcher *dispatcher.Config `yaml:"dispatcher"`
	Tsch       *tsch.Config       `yaml:"tsch"`
	Sf         *sf.Config         `yaml:"sf"`
	Sixp       *sixp.Config       `yaml:"sixp"`
	Rpl        *rpl.Config        `yaml:"rpl"`
	App        *app.Config        `yaml:"app"`
	Radio      *radiomodel.Config `yaml:"radio"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:                     "info",
		MaxDataPktsThroughSharedCell: 10,
		Dispatcher:                   dispatcher.DefaultConfig(),
		Tsch:                         tsch.DefaultConfig(),
		Sf:                           sf.DefaultConfig(),
		Sixp:                         sixp.DefaultConfig(),
		Rpl:                          rpl.DefaultConfig(),
		App:                          app.DefaultConfig(),
		Radio:                        radiomodel.DefaultConfig(),
	}
}

func (cfg *Config) Validate() error {
	if _, err := logger.ParseLevelString(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.MaxDataPktsThroughSharedCell < 0 {
		return errors.Errorf("maxDataPktsThroughSharedCell must be >= 0, got %d", cfg.MaxDataPktsThroughSharedCell)
	}
	if err := cfg.Tsch.Validate(); err != nil {
		return errors.Wrap(err, "tsch")
	}
	if err := cfg.Sf.Validate(); err != nil {
		return errors.Wrap(err, "sf")
	}
	if cfg.Sf.MaxNumCells >= cfg.Tsch.SlotframeLength {
		return errors.Errorf("sf maxNumCells %d does not fit a slotframe of %d slots", cfg.Sf.MaxNumCells,
			cfg.Tsch.SlotframeLength)
	}
	if err := cfg.Sixp.Validate(); err != nil {
		return errors.Wrap(err, "sixp")
	}
	if err := cfg.Rpl.Validate(); err != nil {
		return errors.Wrap(err, "rpl")
	}
	if err := cfg.App.Validate(); err != nil {
		return errors.Wrap(err, "app")
	}
	if err := cfg.Radio.Validate(); err != nil {
		return errors.Wrap(err, "radio")
	}
	return nil
}

// bytesProvider feeds an in-memory document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) {
	return b, nil
}

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytesProvider does not support Read")
}

// LoadConfig layers the defaults, the optional config file at path (YAML, or JSON by extension) and the
// TSCHNS_ environment variables, in that order. Environment keys nest with "__" and are matched
// case-insensitively, e.g. TSCHNS_SF__MAXNUMCELLS=50.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, errors.Wrap(err, "encode default config")
	}
	if err := k.Load(bytesProvider(defaults), kyaml.Parser()); err != nil {
		return nil, errors.Wrap(err, "load default config")
	}

	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = kyaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, errors.Errorf("unsupported config format: %s", path)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, errors.Wrapf(err, "load config %s", path)
		}
	}

	known := map[string]string{}
	for _, key := range k.Keys() {
		known[strings.ToLower(key)] = key
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
		if canonical, ok := known[key]; ok {
			return canonical
		}
		return key
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
