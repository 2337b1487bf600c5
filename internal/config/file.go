package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/hiverunner/internal/errs"
)

// DataSource is one named, typed runner configuration.
type DataSource struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Options Settings `yaml:"options"`
}

// LoggingConfig mirrors logger.Config for file-based setup.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ExportConfig names the object store query results can be exported to.
type ExportConfig struct {
	Endpoint         string `yaml:"endpoint"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	UseSSL           bool   `yaml:"use_ssl"`
	Region           string `yaml:"region"`
	Bucket           string `yaml:"bucket"`
	Prefix           string `yaml:"prefix"`
	AutoCreateBucket bool   `yaml:"auto_create_bucket"`
}

// File is the on-disk layout of a data-source file:
//
//	logging:
//	  level: debug
//	server:
//	  addr: ":8080"
//	data_sources:
//	  - name: warehouse
//	    type: hive
//	    options:
//	      host: hive.internal
//	      mysql_host: metastore.internal
//	      passwd: ${METASTORE_PASSWORD}
//	export:
//	  endpoint: localhost:9000
//	  access_key: ${MINIO_ACCESS_KEY}
//	  secret_key: ${MINIO_SECRET_KEY}
//	  bucket: results
type File struct {
	Logging     LoggingConfig `yaml:"logging"`
	Server      ServerConfig  `yaml:"server"`
	DataSources []DataSource  `yaml:"data_sources"`
	Export      *ExportConfig `yaml:"export"`
}

// LoadFile reads and parses a data-source file. String option values are
// expanded against the environment.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("reading %s", path), err)
	}
	return Parse(raw)
}

// Parse decodes a data-source file from raw YAML.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid data-source file", err)
	}

	seen := make(map[string]bool, len(f.DataSources))
	for i := range f.DataSources {
		ds := &f.DataSources[i]
		if ds.Name == "" || ds.Type == "" {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("data source #%d needs both name and type", i+1))
		}
		if seen[ds.Name] {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("duplicate data source %q", ds.Name))
		}
		seen[ds.Name] = true

		if ds.Options == nil {
			ds.Options = Settings{}
		}
		for k, v := range ds.Options {
			if s, ok := v.(string); ok {
				ds.Options[k] = os.ExpandEnv(s)
			}
		}
	}

	if e := f.Export; e != nil {
		e.Endpoint = os.ExpandEnv(e.Endpoint)
		e.AccessKey = os.ExpandEnv(e.AccessKey)
		e.SecretKey = os.ExpandEnv(e.SecretKey)
		e.Bucket = os.ExpandEnv(e.Bucket)
	}
	return &f, nil
}

// Lookup returns the data source called name.
func (f *File) Lookup(name string) (DataSource, bool) {
	for _, ds := range f.DataSources {
		if ds.Name == name {
			return ds, true
		}
	}
	return DataSource{}, false
}
