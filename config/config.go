/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"io/ioutil"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/magiconair/properties"
	perrors "github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"mosn.io/pkg/log"

	"mosn.io/testkeeper/coordination"
	"mosn.io/testkeeper/keeper"
)

const (
	DefaultName        = "testkeeper"
	DefaultEventBuffer = 32
)

// bootstrapSession owns the nodes seeded from configuration. They are always
// persistent, so the session never needs closing.
const bootstrapSession int64 = 0

// Seed is a node created before the harness accepts traffic. Seeds are always
// persistent nodes; missing parents are created on the way down.
type Seed struct {
	Path string `yaml:"path" properties:"path" validate:"required,startswith=/"`
	Data string `yaml:"data" properties:"data"`
}

// Config drives an embedded keeper harness. Seeds can only be expressed in
// YAML; the properties form carries the flat settings.
type Config struct {
	Name        string `yaml:"name" properties:"name,default=testkeeper" validate:"required"`
	AdminAddr   string `yaml:"admin_addr" properties:"admin_addr,default=" validate:"omitempty,hostname_port"`
	EventBuffer int    `yaml:"event_buffer" properties:"event_buffer,default=32" validate:"min=1"`
	Seeds       []Seed `yaml:"seeds" properties:"-" validate:"dive"`
}

var validate = validator.New()

func defaulted(cfg *Config) *Config {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	return cfg
}

// Validate checks the config against its struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return perrors.WithMessage(err, "invalid keeper config")
	}
	return nil
}

// LoadYAML reads a YAML config file, fills defaults and validates.
func LoadYAML(path string) (*Config, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, perrors.WithMessagef(err, "read config %s", path)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, perrors.WithMessagef(err, "parse config %s", path)
	}
	cfg = defaulted(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadProperties reads a .properties config file, fills defaults and
// validates.
func LoadProperties(path string) (*Config, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, perrors.WithMessagef(err, "read config %s", path)
	}
	cfg := &Config{}
	if err := p.Decode(cfg); err != nil {
		return nil, perrors.WithMessagef(err, "parse config %s", path)
	}
	cfg = defaulted(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply creates the seed nodes through the normal request path, so every tree
// invariant holds for seeded state as well. Existing nodes are left alone.
func (c *Config) Apply(s *keeper.Storage) error {
	for _, seed := range c.Seeds {
		if err := createRecursive(s, seed.Path, []byte(seed.Data)); err != nil {
			return perrors.WithMessagef(err, "seed %s", seed.Path)
		}
	}
	if len(c.Seeds) > 0 {
		log.DefaultLogger.Infof("[config] applied %d seed nodes", len(c.Seeds))
	}
	return nil
}

// createRecursive creates every element of path, carrying data only on the
// leaf, the way the dubbo registry bootstraps its base paths.
func createRecursive(s *keeper.Storage, path string, data []byte) error {
	elems := strings.Split(strings.TrimPrefix(path, "/"), "/")
	current := ""
	for i, elem := range elems {
		current += "/" + elem
		req := &coordination.CreateRequest{Path: current}
		if i == len(elems)-1 {
			req.Data = data
		}
		results, err := s.ProcessRequest(req, bootstrapSession)
		if err != nil {
			return err
		}
		resp := results[len(results)-1].Response
		if code := resp.Header().Err; code != coordination.OK && code != coordination.NodeExists {
			return perrors.Errorf("create %s: %s", current, code)
		}
	}
	return nil
}
